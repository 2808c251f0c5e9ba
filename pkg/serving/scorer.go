package serving

import (
	"context"
	"fmt"

	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/serving/predictor"
)

type PredictionRecorder interface {
	RecordPrediction(ctx context.Context, s Scored, model, version string, features map[string]float64) error
}

// Scorer ranks the appointments of the prediction date by no-show risk.
type Scorer struct {
	predictor *predictor.Predictor
	model     string
	recorder  PredictionRecorder
}

// NewScorer accepts a nil recorder when predictions need not be logged.
func NewScorer(p *predictor.Predictor, model string, recorder PredictionRecorder) *Scorer {
	return &Scorer{predictor: p, model: model, recorder: recorder}
}

func (s *Scorer) Score(ctx context.Context, records []models.FeatureRecord) ([]Scored, error) {
	// Logged predictions must carry the artifact version.
	var version string
	if s.recorder != nil {
		v, err := s.predictor.Version(s.model)
		if err != nil {
			return nil, fmt.Errorf("model %s version: %w", s.model, err)
		}
		version = v
	}

	target := SelectPredictionDate(records)
	scored := make([]Scored, 0, len(target))
	for _, rec := range target {
		score, err := s.predictor.Score(s.model, rec)
		if err != nil {
			return nil, err
		}
		scored = append(scored, Scored{Record: rec, Score: score})
	}
	RankByScore(scored)

	if s.recorder != nil {
		for _, sc := range scored {
			if err := s.recorder.RecordPrediction(ctx, sc, s.model, version, predictor.FeatureVector(sc.Record)); err != nil {
				return nil, err
			}
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"model": s.model,
		"rows":  len(scored),
	}).Info("Appointments scored")
	return scored, nil
}
