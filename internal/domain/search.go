package domain

import "time"

// SearchResponse is the result of a product search.
type SearchResponse struct {
	Response            string    `json:"response"`
	ResponseThink       string    `json:"responseThink,omitempty"`
	ResponseComplete    string    `json:"responseComplete,omitempty"`
	Products            []Product `json:"products"`
	McpFunctionCallID   string    `json:"mcpFunctionCallId,omitempty"`
	McpFunctionCallName string    `json:"mcpFunctionCallName,omitempty"`
	ElapsedTime         string    `json:"elapsedTime,omitempty"`
}

// NewSearchResponse returns a response with an empty, non-nil product list.
func NewSearchResponse(text string) SearchResponse {
	return SearchResponse{Response: text, Products: []Product{}}
}

// SetElapsed stamps the time spent since start.
func (r *SearchResponse) SetElapsed(start time.Time) {
	r.ElapsedTime = time.Since(start).Round(time.Millisecond).String()
}
