package domain

import "time"

// Sentiment classifies the tone of a mention. Labels are assigned
// upstream by the ingestion pipeline before mentions reach this service.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// Score maps the sentiment label onto the numeric scale used by the
// detectors: NEGATIVE=-1, NEUTRAL=0, POSITIVE=+1.
func (s Sentiment) Score() float64 {
	switch s {
	case SentimentPositive:
		return 1
	case SentimentNegative:
		return -1
	default:
		return 0
	}
}

// Mention is a single social-media post referencing a tracked brand.
// Immutable once ingested.
type Mention struct {
	ID           string
	WorkspaceID  string
	Platform     string
	Content      string
	AuthorID     string
	AuthorName   string
	Sentiment    Sentiment
	Likes        int
	Comments     int
	Shares       int
	Reach        int
	IsInfluencer bool
	PublishedAt  time.Time
}
