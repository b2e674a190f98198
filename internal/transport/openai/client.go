package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// Config holds OpenAI-compatible provider settings (OpenAI, Azure-style gateways, Nebius, Ollama).
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // embeddings only
	User       string
	Provider   string
	Logger     *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// parseAPIError classifies a provider failure and wraps it with the component sentinel.
// 401/403/429 map to domain.ErrProviderQuotaOrAuth, everything else to domain.ErrProviderTransport.
func parseAPIError(kind string, err error, component error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w: %w",
			kind, reqErr.HTTPStatusCode, detail, component, classifyStatus(reqErr.HTTPStatusCode))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w: %w",
			kind, apiErr.HTTPStatusCode, apiErr.Message, component, classifyStatus(apiErr.HTTPStatusCode))
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s request: %w: %w: %w", kind, component, domain.ErrProviderTransport, err)
	}

	return fmt.Errorf("%s request failed: %v: %w: %w", kind, err, component, domain.ErrProviderTransport)
}

func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return domain.ErrProviderQuotaOrAuth
	default:
		return domain.ErrProviderTransport
	}
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

// errorType is the metric label for a classified failure.
func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrProviderQuotaOrAuth):
		return "quota_or_auth"
	case errors.Is(err, domain.ErrDeserialization):
		return "empty_response"
	default:
		return "transport"
	}
}
