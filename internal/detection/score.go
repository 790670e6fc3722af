package detection

import (
	"math"

	"github.com/brandpulse/crisis-service/internal/domain"
)

// Weights of each partial signal, summing to 100. Tuned so that a
// severe mix of inputs lands above 70, a mild mix stays below 30 and
// maximally extreme inputs saturate at exactly 100.
const (
	weightSentiment       = 25.0
	weightSentimentChange = 20.0
	weightVolumeChange    = 20.0
	weightNegativeRatio   = 20.0
	weightInfluencers     = 15.0
)

const (
	// volumeSaturationPercent is the volume change at which the volume
	// partial maxes out.
	volumeSaturationPercent = 500.0

	// influencerSaturation is the influencer count beyond which more
	// influencer mentions stop raising the score.
	influencerSaturation = 5.0

	// fullConfidenceSampleSize is the mention count at which the
	// small-sample discount disappears.
	fullConfidenceSampleSize = 100.0
)

// ScoreInputs bundles the signals blended into a crisis score.
type ScoreInputs struct {
	SentimentScore            float64
	SentimentChange           float64
	VolumeChange              float64
	NegativeMentionPercentage float64
	InfluencerInvolvement     int
	TotalMentions             int
}

// CalculateCrisisScore blends the input signals into a single bounded
// 0-100 score. Each signal is normalized to a 0-100 partial, combined
// via fixed weights, then discounted for small sample sizes so a thin
// mention stream cannot produce a CRITICAL score on its own.
func CalculateCrisisScore(in ScoreInputs) float64 {
	sentimentPartial := clamp01(-in.SentimentScore) * 100
	changePartial := clamp01(-in.SentimentChange) * 100
	volumePartial := clamp01(in.VolumeChange/volumeSaturationPercent) * 100
	negativePartial := math.Max(0, math.Min(100, in.NegativeMentionPercentage))
	influencerPartial := clamp01(float64(in.InfluencerInvolvement)/influencerSaturation) * 100

	weighted := (weightSentiment*sentimentPartial +
		weightSentimentChange*changePartial +
		weightVolumeChange*volumePartial +
		weightNegativeRatio*negativePartial +
		weightInfluencers*influencerPartial) / 100

	confidence := 0.5 + 0.5*clamp01(float64(in.TotalMentions)/fullConfidenceSampleSize)

	return math.Max(0, math.Min(100, weighted*confidence))
}

// SeverityForScore maps a crisis score onto the four severity tiers.
func SeverityForScore(score float64) domain.CrisisSeverity {
	switch {
	case score >= 75:
		return domain.SeverityCritical
	case score >= 50:
		return domain.SeverityHigh
	case score >= 30:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
