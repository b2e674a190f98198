package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

const systemPrompt = "You are a useful assistant. You always reply with a short and funny message. " +
	"If you do not know an answer, you say 'I don't know that.' " +
	"You only answer questions related to outdoor camping products. " +
	"For any other type of questions, explain to the user that you only answer outdoor camping products questions. " +
	"Do not store memory of the chat conversation."

var thinkPattern = regexp.MustCompile(`(?s)<think>(.*?)</think>(.*)`)

// defaultAnswer is returned when no product passes the relevance threshold.
func defaultAnswer(query string) string {
	return fmt.Sprintf("I don't know the answer for your question. Your question is: [%s]", query)
}

// writeGrounding appends one numbered product entry.
func writeGrounding(b *strings.Builder, position int, p domain.Product) {
	fmt.Fprintf(b, "- Product %d:\n", position)
	fmt.Fprintf(b, "  - Name: %s\n", p.Name)
	fmt.Fprintf(b, "  - Description: %s\n", p.Description)
	fmt.Fprintf(b, "  - Price: %s\n", p.Price.String())
}

func buildMessages(query, grounding string) []domain.ChatMessage {
	user := "You are an intelligent assistant helping clients with their search about outdoor products.\n" +
		"Generate a catchy and friendly message using the information below.\n" +
		"Add a comparison between the products found and the search criteria.\n" +
		"Include products details.\n" +
		"    - User Question: " + query + "\n" +
		"    - Found Products:\n" + grounding

	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: user},
	}
}

// splitThink separates a leading <think>...</think> section from the visible answer.
// Without the tag the whole trimmed text is the answer.
func splitThink(text string) (think, answer string) {
	m := thinkPattern.FindStringSubmatch(text)
	if m == nil {
		return "", strings.TrimSpace(text)
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}
