package chi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	healthuc "github.com/kailas-cloud/eshoplite/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// Deps are the use cases served over HTTP. Insights may be nil.
type Deps struct {
	Catalog        CatalogService
	Semantic       SemanticSearcher
	Orchestrator   Orchestrator
	Insights       InsightService
	Health         HealthChecker
	RecordSearches bool // record an insight for every semantic search
}

// Server exposes the storefront API.
type Server struct {
	deps     Deps
	validate *validator.Validate
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{deps: deps, validate: v, logger: logger}
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.ListProducts)
			r.Post("/", s.CreateProduct)
			r.Get("/search/{term}", s.SearchProducts)
			r.Get("/{id}", s.GetProduct)
			r.Put("/{id}", s.UpdateProduct)
			r.Delete("/{id}", s.DeleteProduct)
		})

		r.Get("/aisearch/{search}", s.AISearch)
		r.Get("/a2asearch/{search}", s.A2ASearch)
		r.Get("/tools/products-search", s.ProductsSearchTool)

		if s.deps.Insights != nil {
			r.Get("/insights", s.ListInsights)
			r.Post("/insights", s.GenerateInsight)
		}
	})
}

// healthResponse is the GET /health body.
type healthResponse struct {
	Status      healthuc.Status                 `json:"status"`
	Checks      map[string]healthuc.CheckResult `json:"checks"`
	VectorIndex string                          `json:"vectorIndex,omitempty"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:      report.Status,
		Checks:      report.Checks,
		VectorIndex: report.VectorIndex,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeBody reads a JSON body into dst and validates it. Writes the error reply on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, validationMessage(err))
		return false
	}
	return true
}

// pathParam returns an unescaped route parameter.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Product id must be a positive integer")
		return 0, false
	}
	return id, true
}

func newToolCallID() string {
	return uuid.NewString()
}
