package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"market-chat/internal/domain"
)

// Esquema esperado:
//
//	CREATE TABLE market_moderation (
//	    market_id        text NOT NULL,
//	    contract_address text NOT NULL,
//	    network          text NOT NULL,
//	    hidden_fields    text[] NOT NULL,
//	    reason           text NOT NULL DEFAULT '',
//	    moderated_by     text NOT NULL,
//	    moderated_at     timestamptz NOT NULL,
//	    is_active        boolean NOT NULL,
//	    PRIMARY KEY (contract_address, network, market_id)
//	);

type ModerationRepository interface {
	Upsert(ctx context.Context, record domain.ModerationRecord) error
	// Get devuelve pgx.ErrNoRows cuando el mercado no tiene registro.
	Get(ctx context.Context, key domain.MarketKey) (domain.ModerationRecord, error)
	GetBatch(ctx context.Context, keys []domain.MarketKey) ([]domain.ModerationRecord, error)
	// Deactivate apaga is_active preservando el resto del registro; devuelve
	// false sin error cuando no había registro.
	Deactivate(ctx context.Context, key domain.MarketKey) (bool, error)
}

type PgModerationRepository struct {
	pool *pgxpool.Pool
}

func NewPgModerationRepository(pool *pgxpool.Pool) *PgModerationRepository {
	return &PgModerationRepository{pool: pool}
}

const moderationColumns = "market_id, contract_address, network, hidden_fields, reason, moderated_by, moderated_at, is_active"

func (r *PgModerationRepository) Upsert(ctx context.Context, record domain.ModerationRecord) error {
	const query = `
		INSERT INTO market_moderation (market_id, contract_address, network, hidden_fields, reason, moderated_by, moderated_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (contract_address, network, market_id) DO UPDATE SET
			hidden_fields = excluded.hidden_fields,
			reason        = excluded.reason,
			moderated_by  = excluded.moderated_by,
			moderated_at  = excluded.moderated_at,
			is_active     = excluded.is_active
	`
	_, err := r.pool.Exec(ctx, query,
		record.Market.MarketID,
		record.Market.ContractAddress,
		record.Market.Network,
		record.HiddenFields,
		record.Reason,
		record.ModeratedBy,
		record.ModeratedAt,
		record.IsActive,
	)
	return err
}

func (r *PgModerationRepository) Get(ctx context.Context, key domain.MarketKey) (domain.ModerationRecord, error) {
	const query = `
		SELECT ` + moderationColumns + `
		FROM market_moderation
		WHERE contract_address = $1 AND network = $2 AND market_id = $3
	`
	var rec domain.ModerationRecord
	err := r.pool.QueryRow(ctx, query, key.ContractAddress, key.Network, key.MarketID).Scan(
		&rec.Market.MarketID,
		&rec.Market.ContractAddress,
		&rec.Market.Network,
		&rec.HiddenFields,
		&rec.Reason,
		&rec.ModeratedBy,
		&rec.ModeratedAt,
		&rec.IsActive,
	)
	return rec, err
}

// GetBatch trae los registros de varios mercados en una sola consulta para
// que una vista de lista no pague un round trip por tarjeta.
func (r *PgModerationRepository) GetBatch(ctx context.Context, keys []domain.MarketKey) ([]domain.ModerationRecord, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	conditions := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys)*3)
	for i, key := range keys {
		base := i * 3
		conditions = append(conditions, fmt.Sprintf("(contract_address = $%d AND network = $%d AND market_id = $%d)", base+1, base+2, base+3))
		args = append(args, key.ContractAddress, key.Network, key.MarketID)
	}
	query := `SELECT ` + moderationColumns + ` FROM market_moderation WHERE ` + strings.Join(conditions, " OR ")

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ModerationRecord
	for rows.Next() {
		var rec domain.ModerationRecord
		if err := rows.Scan(
			&rec.Market.MarketID,
			&rec.Market.ContractAddress,
			&rec.Market.Network,
			&rec.HiddenFields,
			&rec.Reason,
			&rec.ModeratedBy,
			&rec.ModeratedAt,
			&rec.IsActive,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PgModerationRepository) Deactivate(ctx context.Context, key domain.MarketKey) (bool, error) {
	const query = `
		UPDATE market_moderation
		SET is_active = false
		WHERE contract_address = $1 AND network = $2 AND market_id = $3
	`
	tag, err := r.pool.Exec(ctx, query, key.ContractAddress, key.Network, key.MarketID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
