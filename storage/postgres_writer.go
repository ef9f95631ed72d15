package storage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"escalade-finder/config"
	"escalade-finder/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresWriter keeps the offers of the most recent run in latest_offers.
// Each run replaces the previous rows.
type PostgresWriter struct {
	pool *pgxpool.Pool
}

func DSN(cfg *config.Config) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Host:   cfg.DBHost + ":" + strconv.Itoa(cfg.DBPort),
		Path:   "/" + cfg.DBName,
	}
	q := u.Query()
	q.Set("sslmode", cfg.DBSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func NewPostgresWriter(ctx context.Context, cfg *config.Config) (*PostgresWriter, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &PostgresWriter{pool: pool}, nil
}

func (w *PostgresWriter) Close() {
	if w.pool != nil {
		w.pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS latest_offers (
	id BIGSERIAL PRIMARY KEY,
	rank INTEGER NOT NULL,
	dealer_name TEXT NOT NULL,
	title TEXT NOT NULL,
	price INTEGER NOT NULL CHECK (price >= 0),
	raw_price TEXT,
	listing_url TEXT NOT NULL,
	inventory_url TEXT NOT NULL,
	vin TEXT,
	mileage INTEGER,
	condition TEXT,
	location TEXT,
	description TEXT,
	scanned_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_latest_offers_price ON latest_offers(price);
`

func (w *PostgresWriter) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := w.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

const insertSQL = `
INSERT INTO latest_offers (rank, dealer_name, title, price, raw_price, listing_url, inventory_url, vin, mileage, condition, location, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

// ReplaceOffers swaps the stored snapshot for offers in a single transaction.
func (w *PostgresWriter) ReplaceOffers(ctx context.Context, offers []models.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM latest_offers`); err != nil {
		return fmt.Errorf("clear previous offers: %w", err)
	}

	batch := &pgx.Batch{}
	for i, l := range offers {
		batch.Queue(insertSQL,
			i+1,
			l.Dealer,
			l.Title,
			l.Price,
			l.RawPrice,
			l.URL,
			l.InventoryURL,
			nullable(l.VIN),
			nullableInt(l.Mileage),
			nullable(l.Condition),
			nullable(l.Location),
			l.Description,
		)
	}

	if batch.Len() > 0 {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("batch insert failed at row %d: %w", i, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("batch close: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableInt(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}
