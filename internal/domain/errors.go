package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a malformed client request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorIndexError signals a vector index failure.
	ErrVectorIndexError = errors.New("vector index error")
	// ErrChatProviderError signals a chat completion failure.
	ErrChatProviderError = errors.New("chat provider error")
	// ErrEnrichmentError signals an enrichment service failure.
	ErrEnrichmentError = errors.New("enrichment service error")

	// ErrProviderTransport signals a network, timeout or server-side failure talking to a provider.
	ErrProviderTransport = errors.New("provider transport error")
	// ErrProviderQuotaOrAuth signals a rejected credential or an exhausted quota.
	ErrProviderQuotaOrAuth = errors.New("provider quota or auth error")
	// ErrDeserialization signals a malformed payload from a provider.
	ErrDeserialization = errors.New("deserialization error")
)
