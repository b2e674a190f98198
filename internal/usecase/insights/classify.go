package insights

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// Classifier names, also used as metric labels.
const (
	ClassifierSentiment = "sentiment"
	ClassifierLanguage  = "language"
)

const sentimentInstructions = `You are an expert in sentiment analysis. Given a string, evaluate its sentiment and return one of the following values: positive, neutral, or negative.
The output should be in the format 'Sentiment:<detected sentiment>', in example: 'Sentiment:positive'`

const languageInstructions = `You are an expert in language detection. Given a string, detect the language and return its standard language code (e.g., en for English, es for Spanish, fr for French, etc.).
The output should be in the format 'Language:<detected language>', in example: 'Language:en'`

type classifier struct {
	name         string
	instructions string
}

var classifiers = [...]classifier{
	{name: ClassifierSentiment, instructions: sentimentInstructions},
	{name: ClassifierLanguage, instructions: languageInstructions},
}

var labelPatterns = map[string]*regexp.Regexp{
	ClassifierSentiment: labelPattern(ClassifierSentiment),
	ClassifierLanguage:  labelPattern(ClassifierLanguage),
}

func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `:`)
}

func (c classifier) messages(question string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: c.instructions},
		{Role: domain.RoleUser, Content: question},
	}
}

// parseLabeled extracts the value after "<label>:" from a classifier reply.
// The label match is case-insensitive and the value ends at the first line break.
func parseLabeled(reply, label string) (string, error) {
	re, ok := labelPatterns[label]
	if !ok {
		re = labelPattern(label)
	}
	loc := re.FindStringIndex(reply)
	if loc == nil {
		return "", fmt.Errorf("%w: no %q in classifier reply", domain.ErrDeserialization, label+":")
	}

	value := reply[loc[1]:]
	if nl := strings.IndexAny(value, "\r\n"); nl >= 0 {
		value = value[:nl]
	}
	value = strings.Trim(strings.TrimSpace(value), `'".`)
	if value == "" {
		return "", fmt.Errorf("%w: empty %s value", domain.ErrDeserialization, label)
	}
	return value, nil
}
