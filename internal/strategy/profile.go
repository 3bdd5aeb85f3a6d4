package strategy

import (
	"github.com/demandzone/screener/internal/contracts"
)

// Profile is a named, file-backed screening configuration. Profiles let
// operators keep threshold presets under version control and switch
// between them without touching the environment.
type Profile struct {
	Meta       Meta                      `yaml:"meta" json:"meta"`
	Thresholds contracts.ThresholdConfig `yaml:"thresholds" json:"thresholds"`
	Run        RunSettings               `yaml:"run" json:"run"`
}

// Meta identifies a profile.
type Meta struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// RunSettings are the non-threshold run knobs a profile may pin. Zero
// values defer to the configured defaults, except TopN where zero
// screens the whole universe.
type RunSettings struct {
	TopN         int `yaml:"top_n" json:"top_n"`
	LookbackDays int `yaml:"lookback_days" json:"lookback_days"`
	MaxWorkers   int `yaml:"max_workers" json:"max_workers"`
}

// Default returns the built-in profile used when no file is given.
func Default() *Profile {
	return &Profile{
		Meta: Meta{
			Name:    "default",
			Version: "1",
		},
		Thresholds: contracts.DefaultThresholds(),
		Run: RunSettings{
			TopN:         50,
			LookbackDays: 90,
			MaxWorkers:   10,
		},
	}
}
