package detection

import "github.com/brandpulse/crisis-service/internal/domain"

// WindowAggregate summarizes the mentions observed inside one time
// window. It is recomputed on every monitor pass and never persisted.
type WindowAggregate struct {
	Count              int
	MeanSentiment      float64
	NegativePercentage float64
	InfluencerCount    int
	TotalReach         int
}

// Aggregate reduces a window of mentions into summary statistics.
// An empty input yields a zero aggregate with Count=0; callers must
// treat Count=0 as insufficient data rather than divide by it.
func Aggregate(mentions []domain.Mention) WindowAggregate {
	agg := WindowAggregate{Count: len(mentions)}
	if agg.Count == 0 {
		return agg
	}

	sentimentSum := 0.0
	negatives := 0
	for _, m := range mentions {
		sentimentSum += m.Sentiment.Score()
		if m.Sentiment == domain.SentimentNegative {
			negatives++
		}
		if m.IsInfluencer {
			agg.InfluencerCount++
		}
		agg.TotalReach += m.Reach
	}

	agg.MeanSentiment = sentimentSum / float64(agg.Count)
	agg.NegativePercentage = float64(negatives) / float64(agg.Count) * 100
	return agg
}
