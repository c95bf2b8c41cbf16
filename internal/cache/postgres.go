package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres stores collection snapshots in a single table, one row per
// collection. Useful where a durable cache must survive redis restarts.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a Postgres-backed snapshot store and ensures its table.
func NewPostgres(connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_snapshots (
			collection TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("cache schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Close closes the underlying connection.
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Load reads a collection snapshot; a missing row leaves dest empty.
func (p *Postgres) Load(ctx context.Context, collection string, dest any) error {
	var raw []byte
	row := p.db.QueryRowContext(ctx,
		`SELECT payload FROM cache_snapshots WHERE collection = $1`, collection)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("cache load %s: %w", collection, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache decode %s: %w", collection, err)
	}
	return nil
}

// Save replaces a collection snapshot.
func (p *Postgres) Save(ctx context.Context, collection string, items any) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", collection, err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO cache_snapshots (collection, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (collection) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = NOW()
	`, collection, raw)
	if err != nil {
		return fmt.Errorf("cache save %s: %w", collection, err)
	}
	return nil
}

// Clear removes a collection snapshot.
func (p *Postgres) Clear(ctx context.Context, collection string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM cache_snapshots WHERE collection = $1`, collection)
	if err != nil {
		return fmt.Errorf("cache clear %s: %w", collection, err)
	}
	return nil
}
