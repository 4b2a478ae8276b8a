package scoring

import (
	"fmt"
	"math"
)

// weightTolerance absorbs floating point error when checking the weight sum
const weightTolerance = 1e-9

// Weights are the factor weights of the candidate score. They are loaded
// from configuration and must sum to 1.0; they are never renormalized.
type Weights struct {
	// SkillMatch rewards holding every required skill at the required level
	SkillMatch float64 `yaml:"skillMatch"`

	// Availability rewards declared availability covering the preferred window
	Availability float64 `yaml:"availability"`

	// Continuity rewards staff already caring for the patient for the service
	Continuity float64 `yaml:"continuity"`

	// Proximity rewards staff living close to the patient
	Proximity float64 `yaml:"proximity"`

	// Utilization rewards staff with headroom under their weekly ceiling
	Utilization float64 `yaml:"utilization"`
}

// DefaultWeights returns the documented default weights
func DefaultWeights() Weights {
	return Weights{
		SkillMatch:   0.30,
		Availability: 0.25,
		Continuity:   0.20,
		Proximity:    0.15,
		Utilization:  0.10,
	}
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.SkillMatch + w.Availability + w.Continuity + w.Proximity + w.Utilization
}

// Validate checks that every weight is in [0,1] and that they sum to 1.0
func (w Weights) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"skillMatch", w.SkillMatch},
		{"availability", w.Availability},
		{"continuity", w.Continuity},
		{"proximity", w.Proximity},
		{"utilization", w.Utilization},
	}
	for _, n := range named {
		if n.value < 0 || n.value > 1 || math.IsNaN(n.value) {
			return fmt.Errorf("scoring weight %s must be between 0 and 1, got %v", n.name, n.value)
		}
	}

	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}
