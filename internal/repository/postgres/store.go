// Package postgres stores the product catalog and question insights in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for migrations
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const productColumns = `id, name, description, price::text, image_url, embedding`

// Store implements the catalog and insight repositories on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate applies pending embedded migrations.
func Migrate(dsn string, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("Postgres schema is up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("Postgres migrations applied", zap.Uint("version", version))
	return nil
}

// Ping checks the pool connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Count returns the number of products.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// ListAll returns every product ordered by id.
func (s *Store) ListAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

// FindByID returns the product with the given id or domain.ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id int64) (domain.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("find product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("find product %d: %w", id, err)
	}
	return p, nil
}

// FindByNameOrDescriptionContains returns products whose name or description
// contains term case-insensitively, ordered by id. limit <= 0 means no limit.
func (s *Store) FindByNameOrDescriptionContains(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE name ILIKE $1 ESCAPE '\' OR description ILIKE $1 ESCAPE '\'
		 ORDER BY id
		 LIMIT $2`,
		containsPattern(term), limitArg,
	)
	if err != nil {
		return nil, fmt.Errorf("search products %q: %w", term, err)
	}
	return collectProducts(rows)
}

// Create inserts p and returns it with its assigned id.
// A positive p.ID is kept and the id sequence is advanced past it.
func (s *Store) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.ID <= 0 {
		err := s.pool.QueryRow(ctx,
			`INSERT INTO products (name, description, price, image_url, embedding)
			 VALUES ($1, $2, $3::numeric, $4, $5)
			 RETURNING id`,
			p.Name, p.Description, p.Price.String(), p.ImageURL, nullableVector(p.Embedding),
		).Scan(&p.ID)
		if err != nil {
			return domain.Product{}, fmt.Errorf("create product: %w", err)
		}
		return p, nil
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO products (id, name, description, price, image_url, embedding)
			 VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
			p.ID, p.Name, p.Description, p.Price.String(), p.ImageURL, nullableVector(p.Embedding),
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`SELECT setval(pg_get_serial_sequence('products', 'id'), (SELECT MAX(id) FROM products))`)
		return err
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product %d: %w", p.ID, err)
	}
	return p, nil
}

// Update replaces the product fields and clears its stored embedding.
func (s *Store) Update(ctx context.Context, p domain.Product) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4::numeric, image_url = $5, embedding = NULL, updated_at = NOW()
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price.String(), p.ImageURL)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the product with the given id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SaveEmbedding stores the vector computed for a product.
func (s *Store) SaveEmbedding(ctx context.Context, id int64, vec []float32) error {
	tag, err := s.pool.Exec(ctx, `UPDATE products SET embedding = $2 WHERE id = $1`, id, nullableVector(vec))
	if err != nil {
		return fmt.Errorf("save embedding %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SaveInsight inserts the insight and sets its id.
func (s *Store) SaveInsight(ctx context.Context, in *domain.QuestionInsight) error {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO question_insights (created_at, question, sentiment, language)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		in.CreatedAt, in.Question, string(in.Sentiment), in.Language,
	).Scan(&in.ID)
	if err != nil {
		return fmt.Errorf("save insight: %w", err)
	}
	return nil
}

// ListInsights returns stored insights newest first. limit <= 0 means no limit.
func (s *Store) ListInsights(ctx context.Context, limit int) ([]domain.QuestionInsight, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, created_at, question, sentiment, language FROM question_insights
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`, limitArg)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.QuestionInsight, error) {
		var (
			in        domain.QuestionInsight
			sentiment string
		)
		if err := row.Scan(&in.ID, &in.CreatedAt, &in.Question, &sentiment, &in.Language); err != nil {
			return domain.QuestionInsight{}, err
		}
		in.Sentiment = domain.ParseSentiment(sentiment)
		return in, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	if out == nil {
		out = []domain.QuestionInsight{}
	}
	return out, nil
}

func scanProduct(row pgx.CollectableRow) (domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.ImageURL, &p.Embedding); err != nil {
		return domain.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %d price %q: %w", p.ID, price, err)
	}
	p.Price = d
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	out, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	if out == nil {
		out = []domain.Product{}
	}
	return out, nil
}

func nullableVector(vec []float32) any {
	if len(vec) == 0 {
		return nil
	}
	return vec
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns term into a LIKE pattern that matches it literally.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
