// Package sqlite stores the product catalog and question insights in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/eshoplite/internal/db"
	"github.com/kailas-cloud/eshoplite/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price       TEXT NOT NULL DEFAULT '0',
	image_url   TEXT NOT NULL DEFAULT '',
	embedding   BLOB NULL
);
CREATE TABLE IF NOT EXISTS question_insights (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL,
	question   TEXT NOT NULL,
	sentiment  TEXT NOT NULL DEFAULT 'undefined',
	language   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_question_insights_created_at ON question_insights (created_at);
`

const productColumns = `id, name, description, price, image_url, embedding`

// Store implements the catalog and insight repositories on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite serializes writers; one connection also keeps :memory: databases shared.
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &Store{db: conn}, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Count returns the number of products.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// ListAll returns every product ordered by id.
func (s *Store) ListAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return scanProducts(rows)
}

// FindByID returns the product with the given id or domain.ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id int64) (domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("find product %d: %w", id, err)
	}
	return p, nil
}

// FindByNameOrDescriptionContains returns products whose name or description
// contains term (ASCII case-insensitive), ordered by id. limit <= 0 means no limit.
func (s *Store) FindByNameOrDescriptionContains(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE name LIKE ?1 ESCAPE '\' OR description LIKE ?1 ESCAPE '\'
		 ORDER BY id
		 LIMIT ?2`,
		containsPattern(term), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search products %q: %w", term, err)
	}
	return scanProducts(rows)
}

// Create inserts p and returns it with its assigned id.
// A positive p.ID is kept as the row id.
func (s *Store) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	var (
		res sql.Result
		err error
	)
	if p.ID > 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO products (id, name, description, price, image_url, embedding) VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Description, p.Price.String(), p.ImageURL, encodeEmbedding(p.Embedding))
	} else {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO products (name, description, price, image_url, embedding) VALUES (?, ?, ?, ?, ?)`,
			p.Name, p.Description, p.Price.String(), p.ImageURL, encodeEmbedding(p.Embedding))
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: last insert id: %w", err)
	}
	p.ID = id
	return p, nil
}

// Update replaces the product fields and clears its stored embedding.
func (s *Store) Update(ctx context.Context, p domain.Product) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, price = ?, image_url = ?, embedding = NULL WHERE id = ?`,
		p.Name, p.Description, p.Price.String(), p.ImageURL, p.ID)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return requireAffected(res, p.ID)
}

// Delete removes the product with the given id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// SaveEmbedding stores the vector computed for a product.
func (s *Store) SaveEmbedding(ctx context.Context, id int64, vec []float32) error {
	res, err := s.db.ExecContext(ctx, `UPDATE products SET embedding = ? WHERE id = ?`, encodeEmbedding(vec), id)
	if err != nil {
		return fmt.Errorf("save embedding %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// SaveInsight inserts the insight and sets its id.
func (s *Store) SaveInsight(ctx context.Context, in *domain.QuestionInsight) error {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO question_insights (created_at, question, sentiment, language) VALUES (?, ?, ?, ?)`,
		in.CreatedAt.UTC().Format(time.RFC3339Nano), in.Question, string(in.Sentiment), in.Language)
	if err != nil {
		return fmt.Errorf("save insight: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save insight: last insert id: %w", err)
	}
	in.ID = id
	return nil
}

// ListInsights returns stored insights newest first. limit <= 0 means no limit.
func (s *Store) ListInsights(ctx context.Context, limit int) ([]domain.QuestionInsight, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, question, sentiment, language FROM question_insights
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	out := make([]domain.QuestionInsight, 0)
	for rows.Next() {
		var (
			in        domain.QuestionInsight
			createdAt string
			sentiment string
		)
		if err := rows.Scan(&in.ID, &createdAt, &in.Question, &sentiment, &in.Language); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		in.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse insight %d created_at: %w", in.ID, err)
		}
		in.Sentiment = domain.ParseSentiment(sentiment)
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (domain.Product, error) {
	var (
		p         domain.Product
		embedding []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &embedding); err != nil {
		return domain.Product{}, err
	}
	if len(embedding) > 0 {
		vec, err := db.DecodeVector(embedding)
		if err != nil {
			return domain.Product{}, fmt.Errorf("product %d embedding: %w", p.ID, err)
		}
		p.Embedding = vec
	}
	return p, nil
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	defer rows.Close()

	out := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func encodeEmbedding(vec []float32) any {
	if len(vec) == 0 {
		return nil
	}
	return []byte(db.EncodeVector(vec))
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns term into a LIKE pattern that matches it literally.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
