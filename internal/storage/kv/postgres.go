package kv

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"adega/pkg/platform/sentinel"
	"adega/pkg/platform/tx"
)

var storageEntriesSchema = []string{`
CREATE TABLE IF NOT EXISTS storage_entries (
	area       TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (area, key)
)`, `
CREATE INDEX IF NOT EXISTS storage_entries_updated_at_idx ON storage_entries (updated_at)`,
}

// insufficientResources is the SQLSTATE class for disk_full, out_of_memory
// and too_many_connections.
const insufficientResources = "53"

// EnsureSchema creates the storage_entries table and its index when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	return tx.Run(ctx, db, func(ctx context.Context) error {
		q := tx.QuerierFrom(ctx, db)
		for _, stmt := range storageEntriesSchema {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// PurgeStale deletes entries not written since before cutoff, across all
// areas, and returns how many were removed. Legacy areas are never written
// again after migration, so this is how abandoned devices are reclaimed.
func PurgeStale(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := tx.QuerierFrom(ctx, db).ExecContext(ctx,
		`DELETE FROM storage_entries WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PostgresBackend is a durable storage area. It backs the legacy device
// scoped data that predates per-tab sessions. Operations join a transaction
// carried by the context (see package tx) when there is one.
type PostgresBackend struct {
	db   *sql.DB
	area string
}

func NewPostgresBackend(db *sql.DB, area string) *PostgresBackend {
	return &PostgresBackend{db: db, area: area}
}

func (p *PostgresBackend) Get(ctx context.Context, key string) (string, error) {
	defer observe("postgres", "get", time.Now())
	var value string
	err := tx.QuerierFrom(ctx, p.db).QueryRowContext(ctx,
		`SELECT value FROM storage_entries WHERE area = $1 AND key = $2`,
		p.area, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (p *PostgresBackend) Set(ctx context.Context, key, value string) error {
	defer observe("postgres", "set", time.Now())
	_, err := tx.QuerierFrom(ctx, p.db).ExecContext(ctx, `
		INSERT INTO storage_entries (area, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (area, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		p.area, key, value,
	)
	if isPostgresQuota(err) {
		return errors.Join(ErrQuotaExceeded, err)
	}
	return err
}

func (p *PostgresBackend) Delete(ctx context.Context, key string) error {
	defer observe("postgres", "delete", time.Now())
	_, err := tx.QuerierFrom(ctx, p.db).ExecContext(ctx,
		`DELETE FROM storage_entries WHERE area = $1 AND key = $2`,
		p.area, key,
	)
	return err
}

func (p *PostgresBackend) Keys(ctx context.Context) ([]string, error) {
	defer observe("postgres", "keys", time.Now())
	rows, err := tx.QuerierFrom(ctx, p.db).QueryContext(ctx,
		`SELECT key FROM storage_entries WHERE area = $1 ORDER BY key`,
		p.area,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func isPostgresQuota(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code.Class() == insufficientResources || pqErr.Code == "54000"
}

// PostgresAreas maps area ids to PostgresBackends sharing one pool.
type PostgresAreas struct {
	db *sql.DB
}

func NewPostgresAreas(db *sql.DB) *PostgresAreas {
	return &PostgresAreas{db: db}
}

func (a *PostgresAreas) Area(id string) Backend {
	return NewPostgresBackend(a.db, id)
}
