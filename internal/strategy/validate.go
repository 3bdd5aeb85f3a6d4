package strategy

import "fmt"

// ValidationError reports a profile field violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all profile constraints.
func Validate(profile *Profile) error {
	if profile.Meta.Name == "" {
		return ValidationError{"meta.name", "required"}
	}

	if err := profile.Thresholds.Validate(); err != nil {
		return ValidationError{"thresholds", err.Error()}
	}

	switch profile.Run.TopN {
	case 0, 25, 50, 100:
	default:
		return ValidationError{"run.top_n", "must be one of 0, 25, 50, 100"}
	}

	// 30-session low window plus the RSI warmup
	if profile.Run.LookbackDays != 0 && profile.Run.LookbackDays < 35 {
		return ValidationError{"run.lookback_days", "must be at least 35"}
	}

	if profile.Run.MaxWorkers < 0 {
		return ValidationError{"run.max_workers", "must be >= 0"}
	}

	return nil
}
