package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/domain"
	"github.com/kailas-cloud/eshoplite/internal/metrics"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultListLimit = 100
	recordTimeout    = 2 * time.Minute
)

// Service classifies user questions by sentiment and language.
type Service struct {
	store     Store
	chat      ChatCompleter
	publisher Publisher
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates an insight generator. publisher may be nil.
func New(store Store, chat ChatCompleter, publisher Publisher, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		store:     store,
		chat:      chat,
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
	}
}

type classification struct {
	classifier string
	value      string
}

// Generate runs both classifiers concurrently, stores the insight and publishes it.
// A classifier that fails or misses the join deadline leaves its field at the default.
func (s *Service) Generate(ctx context.Context, question string) (domain.QuestionInsight, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.QuestionInsight{}, fmt.Errorf("%w: question is required", domain.ErrInvalidRequest)
	}

	in := domain.QuestionInsight{
		Question:  question,
		Sentiment: domain.SentimentUndefined,
	}

	joinCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results := make(chan classification, len(classifiers))
	for _, c := range classifiers {
		go func() {
			if v, ok := s.classify(joinCtx, c, question); ok {
				results <- classification{classifier: c.name, value: v}
				return
			}
			results <- classification{classifier: c.name}
		}()
	}

join:
	for range len(classifiers) {
		select {
		case r := <-results:
			switch r.classifier {
			case ClassifierSentiment:
				if r.value != "" {
					in.Sentiment = domain.ParseSentiment(r.value)
				}
			case ClassifierLanguage:
				in.Language = strings.ToLower(r.value)
			}
		case <-joinCtx.Done():
			s.logger.Warn("Insight classifiers timed out", zap.Duration("timeout", s.timeout))
			break join
		}
	}

	// Persist even when the caller's context ended during classification.
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer saveCancel()

	if err := s.store.SaveInsight(saveCtx, &in); err != nil {
		return domain.QuestionInsight{}, fmt.Errorf("save insight: %w", err)
	}

	s.logger.Info("Insight added",
		zap.Int64("insight_id", in.ID),
		zap.String("question", sanitize(question)),
		zap.String("sentiment", string(in.Sentiment)),
		zap.String("language", in.Language),
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(saveCtx, in); err != nil {
			s.logger.Warn("Failed to publish insight", zap.Int64("insight_id", in.ID), zap.Error(err))
		}
	}
	return in, nil
}

// classify runs one classifier and records its outcome.
func (s *Service) classify(ctx context.Context, c classifier, question string) (string, bool) {
	res, err := s.chat.Complete(ctx, c.messages(question))
	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			status = "timeout"
		}
		metrics.InsightClassificationsTotal.WithLabelValues(c.name, status).Inc()
		s.logger.Warn("Insight classifier failed", zap.String("classifier", c.name), zap.Error(err))
		return "", false
	}

	value, err := parseLabeled(res.Text, c.name)
	if err != nil {
		metrics.InsightClassificationsTotal.WithLabelValues(c.name, "unparsed").Inc()
		s.logger.Warn("Insight classifier reply not understood",
			zap.String("classifier", c.name), zap.String("reply", res.Text), zap.Error(err))
		return "", false
	}

	metrics.InsightClassificationsTotal.WithLabelValues(c.name, "ok").Inc()
	return value, true
}

// Record generates an insight in the background, detached from ctx cancellation.
// Failures are logged.
func (s *Service) Record(ctx context.Context, question string) {
	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, recordTimeout)
		defer cancel()
		if _, err := s.Generate(ctx, question); err != nil {
			s.logger.Warn("Failed to record search insight", zap.String("question", sanitize(question)), zap.Error(err))
		}
	}()
}

// List returns stored insights, newest first.
func (s *Service) List(ctx context.Context) ([]domain.QuestionInsight, error) {
	list, err := s.store.ListInsights(ctx, defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	return list, nil
}

func sanitize(q string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(q)
}
