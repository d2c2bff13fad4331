package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"market-chat/internal/domain"
)

// Esquema esperado:
//
//	CREATE TABLE rate_limits (
//	    wallet_address  text PRIMARY KEY,
//	    last_message_at timestamptz NOT NULL
//	);

type RateLimitRepository interface {
	// Get devuelve pgx.ErrNoRows cuando la wallet nunca envió.
	Get(ctx context.Context, walletAddress string) (domain.RateLimitRecord, error)
	Upsert(ctx context.Context, walletAddress string, lastMessageAt time.Time) error
}

type PgRateLimitRepository struct {
	pool *pgxpool.Pool
}

func NewPgRateLimitRepository(pool *pgxpool.Pool) *PgRateLimitRepository {
	return &PgRateLimitRepository{pool: pool}
}

func (r *PgRateLimitRepository) Get(ctx context.Context, walletAddress string) (domain.RateLimitRecord, error) {
	const query = `
		SELECT wallet_address, last_message_at
		FROM rate_limits
		WHERE wallet_address = $1
	`
	var rec domain.RateLimitRecord
	err := r.pool.QueryRow(ctx, query, walletAddress).Scan(&rec.WalletAddress, &rec.LastMessageAt)
	return rec, err
}

// Upsert mantiene last_message_at monotónico aunque dos envíos concurrentes
// escriban fuera de orden.
func (r *PgRateLimitRepository) Upsert(ctx context.Context, walletAddress string, lastMessageAt time.Time) error {
	const query = `
		INSERT INTO rate_limits (wallet_address, last_message_at)
		VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO UPDATE SET
			last_message_at = GREATEST(rate_limits.last_message_at, excluded.last_message_at)
	`
	_, err := r.pool.Exec(ctx, query, walletAddress, lastMessageAt)
	return err
}
