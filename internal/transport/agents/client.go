// Package agents talks to the inventory, promotions and researcher services.
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/eshoplite/internal/domain"
	"github.com/kailas-cloud/eshoplite/internal/version"
)

// Endpoint paths served by every enrichment agent.
const (
	InventoryPath  = "/api/inventory/check"
	PromotionsPath = "/api/promotions/active"
	InsightsPath   = "/api/researcher/insights"
)

const maxBodyBytes = 1 << 20

// Config holds agent base URLs.
type Config struct {
	InventoryURL  string
	PromotionsURL string
	ResearcherURL string
	HTTPClient    *http.Client // optional, defaults to a client with a 30s timeout
}

// Client calls the enrichment agents over HTTP with JSON bodies.
type Client struct {
	inventoryURL  string
	promotionsURL string
	researcherURL string
	httpClient    *http.Client
}

// New creates an agent client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		inventoryURL:  strings.TrimRight(cfg.InventoryURL, "/"),
		promotionsURL: strings.TrimRight(cfg.PromotionsURL, "/"),
		researcherURL: strings.TrimRight(cfg.ResearcherURL, "/"),
		httpClient:    hc,
	}
}

type productRequest struct {
	ProductID string `json:"productId"`
}

type inventoryResponse struct {
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
}

type promotionsResponse struct {
	ProductID  string             `json:"productId"`
	Promotions []domain.Promotion `json:"promotions"`
}

type insightsResponse struct {
	ProductID string           `json:"productId"`
	Insights  []domain.Insight `json:"insights"`
}

// CheckInventory returns the stock level for a product. Negative values are clamped to zero.
func (c *Client) CheckInventory(ctx context.Context, productID int64) (int, error) {
	var resp inventoryResponse
	if err := c.post(ctx, c.inventoryURL+InventoryPath, productID, &resp); err != nil {
		return 0, fmt.Errorf("inventory: %w", err)
	}
	return max(resp.Stock, 0), nil
}

// ActivePromotions returns the active promotions for a product.
func (c *Client) ActivePromotions(ctx context.Context, productID int64) ([]domain.Promotion, error) {
	var resp promotionsResponse
	if err := c.post(ctx, c.promotionsURL+PromotionsPath, productID, &resp); err != nil {
		return nil, fmt.Errorf("promotions: %w", err)
	}
	if resp.Promotions == nil {
		return []domain.Promotion{}, nil
	}
	return resp.Promotions, nil
}

// Insights returns review insights for a product.
func (c *Client) Insights(ctx context.Context, productID int64) ([]domain.Insight, error) {
	var resp insightsResponse
	if err := c.post(ctx, c.researcherURL+InsightsPath, productID, &resp); err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}
	if resp.Insights == nil {
		return []domain.Insight{}, nil
	}
	return resp.Insights, nil
}

func (c *Client) post(ctx context.Context, url string, productID int64, out any) error {
	body, err := json.Marshal(productRequest{ProductID: strconv.FormatInt(productID, 10)})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", domain.ErrEnrichmentError, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(domain.ErrEnrichmentError, domain.ErrProviderTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Join(domain.ErrEnrichmentError, domain.ErrProviderTransport, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Join(domain.ErrEnrichmentError, domain.ErrProviderTransport,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(data), 200)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Join(domain.ErrEnrichmentError, domain.ErrDeserialization, err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
