package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"github.com/ashureev/shopassist/internal/domain"
)

//go:embed data/products.json
var seedProducts []byte

// SeedProducts returns the built-in product listing.
func SeedProducts() ([]domain.Product, error) {
	var products []domain.Product
	if err := json.Unmarshal(seedProducts, &products); err != nil {
		return nil, fmt.Errorf("decode seed products: %w", err)
	}
	return products, nil
}

// SQLiteStore is the local product listing used when the remote catalog is
// unreachable. It holds the seeded listing; remote listings are never
// written to it.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// NewSQLite opens the catalog database at dbPath, creating the schema and
// seeding the built-in listing when the table is empty.
func NewSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if err := store.seedIfEmpty(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		price INTEGER NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		site TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		rating REAL NOT NULL DEFAULT 0,
		store_url TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) seedIfEmpty(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if n > 0 {
		return nil
	}

	products, err := SeedProducts()
	if err != nil {
		return err
	}
	if err := s.Replace(ctx, products); err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	slog.Info("Seeded local catalog", "count", len(products))
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Products returns the stored listing in insertion order.
func (s *SQLiteStore) Products(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, name, price, color, category, site, image,
		       description, rating, store_url
		FROM products ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close product rows", "error", closeErr)
		}
	}()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Price, &p.Color, &p.Category, &p.Site, &p.Image,
			&p.Description, &p.Rating, &p.StoreURL,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// Replace swaps the stored listing for products in one transaction. It retries
// with exponential backoff while the database is busy.
func (s *SQLiteStore) Replace(ctx context.Context, products []domain.Product) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 100 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, 3), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := s.replaceOnce(ctx, products)
		if err == nil {
			return nil
		}
		if !isConflictError(err) {
			return backoff.Permanent(err)
		}
		slog.Debug("Replace products hit a locked database, retrying", "attempt", attempt)
		return err
	}, policy)
}

func (s *SQLiteStore) replaceOnce(ctx context.Context, products []domain.Product) (err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (id, position, name, price, color, category, site, image,
		                      description, rating, store_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			name = excluded.name,
			price = excluded.price,
			color = excluded.color,
			category = excluded.category,
			site = excluded.site,
			image = excluded.image,
			description = excluded.description,
			rating = excluded.rating,
			store_url = excluded.store_url,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i, p := range products {
		if _, err = stmt.ExecContext(ctx,
			p.ID, i, p.Name, p.Price, p.Color, p.Category, p.Site, p.Image,
			p.Description, p.Rating, p.StoreURL, now,
		); err != nil {
			return fmt.Errorf("insert product %d: %w", p.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit products: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// isConflictError reports SQLITE_BUSY and "database is locked" errors, the
// two forms of SQLite write contention worth retrying.
func isConflictError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
