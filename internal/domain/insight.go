package domain

import (
	"strings"
	"time"
)

// Sentiment classifies the tone of a user question.
type Sentiment string

const (
	SentimentUndefined Sentiment = "undefined"
	SentimentPositive  Sentiment = "positive"
	SentimentNeutral   Sentiment = "neutral"
	SentimentNegative  Sentiment = "negative"
)

// ParseSentiment maps free text to a Sentiment, case-insensitively.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNeutral:
		return SentimentNeutral
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentUndefined
	}
}

// QuestionInsight captures what a user asked and how.
type QuestionInsight struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Question  string    `json:"question"`
	Sentiment Sentiment `json:"sentiment"`
	Language  string    `json:"language"`
}
