package postgres

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

func TestMigrations_Embedded(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 || len(files)%2 != 0 {
		t.Fatalf("expected paired up/down migrations, got %v", files)
	}

	var ups int
	for _, f := range files {
		if strings.HasSuffix(f, ".up.sql") {
			ups++
		}
	}
	if ups*2 != len(files) {
		t.Errorf("every up migration needs a down migration: %v", files)
	}
}

func TestContainsPattern(t *testing.T) {
	tests := map[string]string{
		"tent": "%tent%",
		"50%":  `%50\%%`,
		"a_b":  `%a\_b%`,
		`c:\x`: `%c:\\x%`,
	}
	for term, want := range tests {
		if got := containsPattern(term); got != want {
			t.Errorf("containsPattern(%q) = %q, want %q", term, got, want)
		}
	}
}

func TestNullableVector(t *testing.T) {
	if nullableVector(nil) != nil {
		t.Error("nil vector should map to NULL")
	}
	if nullableVector([]float32{}) != nil {
		t.Error("empty vector should map to NULL")
	}
	if v, ok := nullableVector([]float32{1}).([]float32); !ok || len(v) != 1 {
		t.Error("non-empty vector should pass through")
	}
}

// newIntegrationStore connects to ESHOPLITE_TEST_POSTGRES_DSN, skipping when unset.
func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("ESHOPLITE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ESHOPLITE_TEST_POSTGRES_DSN not set")
	}
	if err := Migrate(dsn, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s, err := Connect(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), `TRUNCATE products, question_insights RESTART IDENTITY`)
		_ = s.Close()
	})
	_, _ = s.pool.Exec(context.Background(), `TRUNCATE products, question_insights RESTART IDENTITY`)
	return s
}

func TestIntegration_ProductLifecycle(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	p, err := s.Create(ctx, domain.Product{
		Name:        "Hiking Boots",
		Description: "Waterproof",
		Price:       decimal.RequireFromString("129.99"),
		Embedding:   []float32{0.1, 0.2},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.Price.Equal(decimal.RequireFromString("129.99")) || len(got.Embedding) != 2 {
		t.Errorf("unexpected product: %+v", got)
	}

	matches, err := s.FindByNameOrDescriptionContains(ctx, "BOOTS", 0)
	if err != nil || len(matches) != 1 {
		t.Fatalf("search = %d, %v; want 1", len(matches), err)
	}

	got.Name = "Trail Boots"
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.Delete(ctx, got.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.FindByID(ctx, got.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegration_ExplicitIDAdvancesSequence(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, domain.Product{ID: 10, Name: "Tent"}); err != nil {
		t.Fatalf("create explicit: %v", err)
	}
	next, err := s.Create(ctx, domain.Product{Name: "Stove"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if next.ID != 11 {
		t.Errorf("next id = %d, want 11", next.ID)
	}
}

func TestIntegration_Insights(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	in := domain.QuestionInsight{Question: "warmest sleeping bag?", Sentiment: domain.SentimentNeutral, Language: "en"}
	if err := s.SaveInsight(ctx, &in); err != nil {
		t.Fatalf("save: %v", err)
	}
	list, err := s.ListInsights(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != in.ID || list[0].Sentiment != domain.SentimentNeutral {
		t.Errorf("unexpected insights: %+v", list)
	}
}
