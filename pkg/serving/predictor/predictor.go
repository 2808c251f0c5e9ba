package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/ml/linear"
)

type Artifact struct {
	Model struct {
		Type         string         `json:"type"`
		Algorithm    string         `json:"algorithm"`
		Version      string         `json:"version"`
		FeatureNames []string       `json:"feature_names"`
		Weights      linear.Weights `json:"weights"`
	} `json:"model"`
}

type Predictor struct {
	dir   string
	cache map[string]cachedArtifact
	mu    sync.RWMutex
}

type cachedArtifact struct {
	artifact Artifact
	modTime  int64
}

func NewPredictor(dir string) *Predictor {
	return &Predictor{
		dir:   dir,
		cache: make(map[string]cachedArtifact),
	}
}

// Predict scores named features against the latest artifact of model.
// Indicator features (weekday_*, specialism_*) absent from features count
// as zero; any other missing feature is an error.
func (p *Predictor) Predict(model string, features map[string]float64) (float64, error) {
	artifact, err := p.loadArtifact(model)
	if err != nil {
		return 0, err
	}
	if len(artifact.Model.FeatureNames) == 0 {
		return 0, fmt.Errorf("artifact missing feature names")
	}
	if len(artifact.Model.Weights.Coefficients) != len(artifact.Model.FeatureNames) {
		return 0, fmt.Errorf("artifact has %d coefficients for %d features",
			len(artifact.Model.Weights.Coefficients), len(artifact.Model.FeatureNames))
	}
	sample := make([]float64, len(artifact.Model.FeatureNames))
	for idx, name := range artifact.Model.FeatureNames {
		value, ok := features[name]
		if !ok && !isIndicator(name) {
			return 0, fmt.Errorf("missing feature %s", name)
		}
		sample[idx] = value
	}
	return linear.Predict(artifact.Model.Weights, sample), nil
}

func (p *Predictor) Score(model string, rec models.FeatureRecord) (float64, error) {
	score, err := p.Predict(model, FeatureVector(rec))
	if err != nil {
		return 0, fmt.Errorf("patient %s: %w", rec.PatientID, err)
	}
	return score, nil
}

// Version reports the version string of the loaded artifact.
func (p *Predictor) Version(model string) (string, error) {
	artifact, err := p.loadArtifact(model)
	if err != nil {
		return "", err
	}
	return artifact.Model.Version, nil
}

func isIndicator(name string) bool {
	return strings.HasPrefix(name, "weekday_") || strings.HasPrefix(name, "specialism_")
}

func (p *Predictor) loadArtifact(model string) (Artifact, error) {
	latest := filepath.Join(p.dir, fmt.Sprintf("%s_latest.json", model))
	info, err := os.Stat(latest)
	if err != nil {
		return Artifact{}, err
	}
	mod := info.ModTime().UnixNano()

	p.mu.RLock()
	cached, ok := p.cache[model]
	p.mu.RUnlock()
	if ok && cached.modTime == mod {
		return cached.artifact, nil
	}

	content, err := os.ReadFile(latest)
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("decode artifact %s: %w", latest, err)
	}
	p.mu.Lock()
	p.cache[model] = cachedArtifact{artifact: artifact, modTime: mod}
	p.mu.Unlock()
	return artifact, nil
}
