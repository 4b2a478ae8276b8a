package scoring

import "github.com/carebridge/care-matching/pkg/core/model"

// Tier thresholds. Each tier is closed on its lower bound.
const (
	StrongThreshold   = 0.75
	ModerateThreshold = 0.5
	WeakThreshold     = 0.25
)

// TierFor maps a confidence score to its match tier
func TierFor(score float64) model.MatchTier {
	switch {
	case score >= StrongThreshold:
		return model.TierStrong
	case score >= ModerateThreshold:
		return model.TierModerate
	case score >= WeakThreshold:
		return model.TierWeak
	default:
		return model.TierNone
	}
}
