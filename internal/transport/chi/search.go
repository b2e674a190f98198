package chi

import (
	"net/http"
	"strconv"

	"github.com/kailas-cloud/eshoplite/internal/domain/tool"
)

// AISearch handles GET /api/aisearch/{search}. Always 200: pipeline
// failures are reported in the response text.
func (s *Server) AISearch(w http.ResponseWriter, r *http.Request) {
	query := pathParam(r, "search")
	reasoning, _ := strconv.ParseBool(r.URL.Query().Get("reasoning"))

	search := s.deps.Semantic.Search
	if reasoning {
		search = s.deps.Semantic.SearchReasoning
	}
	result := search(r.Context(), query)

	if s.deps.RecordSearches && s.deps.Insights != nil {
		s.deps.Insights.Record(r.Context(), query)
	}
	writeJSON(w, http.StatusOK, result)
}

// A2ASearch handles GET /api/a2asearch/{search}.
func (s *Server) A2ASearch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Orchestrator.ExecuteSearch(r.Context(), pathParam(r, "search")))
}

// ProductsSearchTool handles GET /api/tools/products-search?q=.
func (s *Server) ProductsSearchTool(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "q: required")
		return
	}

	callID := newToolCallID()
	resp := s.deps.Semantic.Search(r.Context(), query)
	resp.McpFunctionCallID = callID
	resp.McpFunctionCallName = string(tool.TypeProductsSearch)

	writeJSON(w, http.StatusOK, tool.New(callID, tool.ProductsSearch{SearchResponse: resp}))
}

type insightRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// ListInsights handles GET /api/insights.
func (s *Server) ListInsights(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Insights.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GenerateInsight handles POST /api/insights.
func (s *Server) GenerateInsight(w http.ResponseWriter, r *http.Request) {
	var req insightRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	in, err := s.deps.Insights.Generate(r.Context(), req.Question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}
