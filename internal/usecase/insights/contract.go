package insights

import (
	"context"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// Store persists question insights (ISP).
type Store interface {
	SaveInsight(ctx context.Context, in *domain.QuestionInsight) error
	ListInsights(ctx context.Context, limit int) ([]domain.QuestionInsight, error)
}

// ChatCompleter runs one classifier prompt.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (domain.ChatResult, error)
}

// Publisher announces stored insights. Optional.
type Publisher interface {
	Publish(ctx context.Context, in domain.QuestionInsight) error
}
