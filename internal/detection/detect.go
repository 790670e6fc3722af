package detection

import (
	"math"

	"github.com/brandpulse/crisis-service/internal/domain"
)

// AnomalyType identifies the signal a detector evaluates.
type AnomalyType string

const (
	AnomalySentiment AnomalyType = "sentiment"
	AnomalyVolume    AnomalyType = "volume"
)

const (
	// sentimentCriticalRatio is the delta/threshold ratio at which a
	// sentiment drop escalates from HIGH to CRITICAL.
	sentimentCriticalRatio = 1.8

	// volumeCriticalMultiplier escalates a volume spike to CRITICAL
	// once the change reaches this multiple of the threshold.
	volumeCriticalMultiplier = 2.5
)

// UnboundedChange is the sentinel reported when volume appears against
// an empty baseline, where a percentage change is undefined.
const UnboundedChange = math.MaxFloat64

// AnomalyDetails carries the numeric evidence behind a verdict.
type AnomalyDetails struct {
	Current  float64 `json:"current"`
	Baseline float64 `json:"baseline"`
	Delta    float64 `json:"delta,omitempty"`
	Change   float64 `json:"change,omitempty"`
}

// AnomalyResult is the verdict of one detector over one window pair.
type AnomalyResult struct {
	IsAnomaly bool
	Type      AnomalyType
	Severity  domain.CrisisSeverity
	Details   AnomalyDetails
}

// DetectSentimentAnomaly flags a one-sided drop in mean sentiment.
// threshold is negative; the detector fires iff current-baseline falls
// to the threshold or below. Rising sentiment never triggers it.
func DetectSentimentAnomaly(current, baseline, threshold float64) AnomalyResult {
	delta := current - baseline
	result := AnomalyResult{
		Type: AnomalySentiment,
		Details: AnomalyDetails{
			Current:  current,
			Baseline: baseline,
			Delta:    delta,
		},
	}

	if threshold >= 0 || delta > threshold {
		return result
	}

	result.IsAnomaly = true
	if delta/threshold >= sentimentCriticalRatio {
		result.Severity = domain.SeverityCritical
	} else {
		result.Severity = domain.SeverityHigh
	}
	return result
}

// DetectVolumeAnomaly flags a mention-volume spike of at least
// thresholdPercent relative to the baseline window. A zero baseline
// with current activity reports UnboundedChange and always fires.
func DetectVolumeAnomaly(current, baseline, thresholdPercent float64) AnomalyResult {
	var change float64
	switch {
	case baseline > 0:
		change = (current - baseline) / baseline * 100
	case current > 0:
		change = UnboundedChange
	default:
		change = 0
	}

	result := AnomalyResult{
		Type: AnomalyVolume,
		Details: AnomalyDetails{
			Current:  current,
			Baseline: baseline,
			Change:   change,
		},
	}

	if thresholdPercent <= 0 || change < thresholdPercent {
		return result
	}

	result.IsAnomaly = true
	if change >= volumeCriticalMultiplier*thresholdPercent {
		result.Severity = domain.SeverityCritical
	} else {
		result.Severity = domain.SeverityHigh
	}
	return result
}
