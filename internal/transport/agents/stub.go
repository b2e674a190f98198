package agents

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

var promotionTitles = []string{"Special Offer", "Weekend Deal", "Bundle Discount", "Clearance"}

var reviewTemplates = []string{
	"Great product for outdoor activities! Product ID: %s",
	"Excellent quality and durable materials.",
	"Packs small and held up well on a week-long trip.",
}

// Stub serves the three agent endpoints with pseudo-random data.
type Stub struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *zap.Logger
}

// NewStub creates a stub. A nil rng uses a randomly seeded generator.
func NewStub(rng *rand.Rand, logger *zap.Logger) *Stub {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Stub{rng: rng, logger: logger}
}

// Router returns a chi router with the agent endpoints mounted.
func (s *Stub) Router() chi.Router {
	r := chi.NewRouter()
	r.Post(InventoryPath, s.handleInventory)
	r.Post(PromotionsPath, s.handlePromotions)
	r.Post(InsightsPath, s.handleInsights)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

func (s *Stub) handleInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeProductID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	stock := s.rng.IntN(101)
	s.mu.Unlock()

	s.logger.Debug("Inventory check", zap.String("product_id", id), zap.Int("stock", stock))
	writeJSON(w, http.StatusOK, inventoryResponse{ProductID: id, Stock: stock})
}

func (s *Stub) handlePromotions(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeProductID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	n := s.rng.IntN(4)
	promotions := make([]domain.Promotion, 0, n)
	for range n {
		promotions = append(promotions, domain.Promotion{
			Title:    promotionTitles[s.rng.IntN(len(promotionTitles))],
			Discount: 5 + s.rng.IntN(46),
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, promotionsResponse{ProductID: id, Promotions: promotions})
}

func (s *Stub) handleInsights(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeProductID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	n := 1 + s.rng.IntN(3)
	insights := make([]domain.Insight, 0, n)
	for i := range n {
		review := reviewTemplates[i%len(reviewTemplates)]
		if i == 0 {
			review = fmt.Sprintf(review, id)
		}
		insights = append(insights, domain.Insight{
			Review: review,
			Rating: 4.0 + s.rng.Float64(),
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, insightsResponse{ProductID: id, Insights: insights})
}

func decodeProductID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req productRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return "", false
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "productId is required"})
		return "", false
	}
	return req.ProductID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
