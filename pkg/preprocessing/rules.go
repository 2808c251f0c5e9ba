package preprocessing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Rules decide which extract rows are worth predicting for and how the
// status columns map to the no-show target.
type Rules struct {
	// A row is emergency care only when spec code, tariff department and
	// code all appear here.
	EmergencyCodes        []string `yaml:"emergency_codes" json:"emergency_codes"`
	ExcludedSpecialisms   []string `yaml:"excluded_specialisms" json:"excluded_specialisms"`
	CallConsultationCodes []string `yaml:"call_consultation_codes" json:"call_consultation_codes"`
	KeptLocations         []string `yaml:"kept_locations" json:"kept_locations"`
	ConsultTypes          []string `yaml:"consult_types" json:"consult_types"`
	NoShowStatusKeys      []int    `yaml:"no_show_status_keys" json:"no_show_status_keys"`
	NoShowReasons         []string `yaml:"no_show_reasons" json:"no_show_reasons"`
}

func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), fmt.Errorf("read cleaning rules: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(content, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse cleaning rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}

	return rules, nil
}

func (r Rules) Validate() error {
	if len(r.ConsultTypes) == 0 {
		return errors.New("no consult types configured")
	}
	if len(r.NoShowStatusKeys) == 0 {
		return errors.New("no no-show status keys configured")
	}
	return nil
}

func DefaultRules() Rules {
	return Rules{
		EmergencyCodes:        []string{"SEH", "EHH", "CCU"},
		ExcludedSpecialisms:   []string{"RAD", "APO", "ONC", "GEV", "ORT", "GGZ", "PSY", "ANE"},
		CallConsultationCodes: []string{"HB", "TC", "NB", "00001967"},
		KeptLocations: []string{
			"ZGT locatie Almelo",
			"ZGT locatie Hengelo",
			"Polikliniek Verloskunde Almelo",
			"Obesitas centrum Hengelo ZGT",
			"Oncologisch centrum Hengelo",
			"Behandelcentrum Almelo",
			"Slaapcentrum Hengelo",
			"Behandelcentrum Hengelo",
		},
		ConsultTypes:     []string{"H", "E", "V", "*"},
		NoShowStatusKeys: []int{6, 8},
		NoShowReasons: []string{
			"Patient niet verschenen (of te laat gemeld)",
			"No show (geen factuur)",
			"Verzoek patient (<24 uur van tevoren afgemeld)",
		},
	}
}

type ruleSet struct {
	emergency   map[string]bool
	specialisms map[string]bool
	calls       map[string]bool
	locations   map[string]bool
	consult     map[string]bool
	statusKeys  map[int]bool
	reasons     map[string]bool
}

func (r Rules) compile() ruleSet {
	keys := make(map[int]bool, len(r.NoShowStatusKeys))
	for _, k := range r.NoShowStatusKeys {
		keys[k] = true
	}
	return ruleSet{
		emergency:   stringSet(r.EmergencyCodes),
		specialisms: stringSet(r.ExcludedSpecialisms),
		calls:       stringSet(r.CallConsultationCodes),
		locations:   stringSet(r.KeptLocations),
		consult:     stringSet(r.ConsultTypes),
		statusKeys:  keys,
		reasons:     stringSet(r.NoShowReasons),
	}
}

func stringSet(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
