package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KVRepository is the PostgreSQL session storage backend. Rows past their
// expires_at are invisible to reads and removed by CleanExpired.
type KVRepository struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewKVRepository(pool *pgxpool.Pool, ttl time.Duration) *KVRepository {
	return &KVRepository{pool: pool, ttl: ttl}
}

func (r *KVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT v FROM client_kv
		 WHERE k = $1 AND (expires_at IS NULL OR expires_at > now())`, key).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get client kv: %w", err)
	}
	return value, true, nil
}

func (r *KVRepository) SetMany(ctx context.Context, values map[string]string) error {
	now := time.Now().UTC()
	var expiresAt *time.Time
	if r.ttl > 0 {
		at := now.Add(r.ttl)
		expiresAt = &at
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for key, value := range values {
			_, err := tx.Exec(ctx,
				`INSERT INTO client_kv (k, v, updated_at, expires_at)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (k) DO UPDATE
				 SET v = EXCLUDED.v, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at`,
				key, value, now, expiresAt)
			if err != nil {
				return fmt.Errorf("set client kv %q: %w", key, err)
			}
		}
		return nil
	})
}

func (r *KVRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM client_kv WHERE k = ANY($1)`, keys)
	if err != nil {
		return fmt.Errorf("delete client kv: %w", err)
	}
	return nil
}

func (r *KVRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM client_kv WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired client kv: %w", err)
	}
	return tag.RowsAffected(), nil
}
