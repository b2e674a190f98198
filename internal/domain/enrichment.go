package domain

// Promotion is an active discount for a product.
type Promotion struct {
	Title    string `json:"title"`
	Discount int    `json:"discount"`
}

// Insight is a review summary for a product.
type Insight struct {
	Review string  `json:"review"`
	Rating float64 `json:"rating"`
}

// EnrichedProduct is a product merged with inventory, promotions and insights.
// Built per request, never persisted.
type EnrichedProduct struct {
	Product
	Stock      int         `json:"stock"`
	Promotions []Promotion `json:"promotions"`
	Insights   []Insight   `json:"insights"`
}

// NewEnrichedProduct returns p with zero-valued enrichment fields.
func NewEnrichedProduct(p Product) EnrichedProduct {
	return EnrichedProduct{
		Product:    p,
		Promotions: []Promotion{},
		Insights:   []Insight{},
	}
}

// AggregateResponse is the orchestrator result.
type AggregateResponse struct {
	Response string            `json:"response"`
	Products []EnrichedProduct `json:"products"`
}
