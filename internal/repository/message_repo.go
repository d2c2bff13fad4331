package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"market-chat/internal/domain"
)

// Esquema esperado:
//
//	CREATE TABLE chat_messages (
//	    id               text PRIMARY KEY,
//	    market_id        text NOT NULL,
//	    contract_address text NOT NULL,
//	    network          text NOT NULL,
//	    sender_address   text NOT NULL,
//	    body             text NOT NULL,
//	    created_at       timestamptz NOT NULL
//	);
//	CREATE INDEX ON chat_messages (contract_address, network, market_id);
//	CREATE INDEX ON chat_messages (created_at DESC);

type MessageRepository interface {
	Create(ctx context.Context, message domain.ChatMessage) error
	// Delete borra definitivamente y devuelve la fila borrada; pgx.ErrNoRows
	// cuando el id no existe.
	Delete(ctx context.Context, id string) (domain.ChatMessage, error)
	ListByRoom(ctx context.Context, key domain.MarketKey, limit int) ([]domain.ChatMessage, error)
	LatestBySender(ctx context.Context, senderAddress string) (domain.ChatMessage, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

const messageColumns = "id, market_id, contract_address, network, sender_address, body, created_at"

func (r *PgMessageRepository) Create(ctx context.Context, message domain.ChatMessage) error {
	const query = `
		INSERT INTO chat_messages (id, market_id, contract_address, network, sender_address, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.Market.MarketID,
		message.Market.ContractAddress,
		message.Market.Network,
		message.SenderAddress,
		message.Body,
		message.CreatedAt,
	)
	return err
}

func (r *PgMessageRepository) Delete(ctx context.Context, id string) (domain.ChatMessage, error) {
	const query = `
		DELETE FROM chat_messages
		WHERE id = $1
		RETURNING ` + messageColumns

	return scanMessage(r.pool.QueryRow(ctx, query, id))
}

func (r *PgMessageRepository) ListByRoom(ctx context.Context, key domain.MarketKey, limit int) ([]domain.ChatMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM chat_messages
		WHERE contract_address = $1 AND network = $2 AND market_id = $3
		ORDER BY created_at ASC, id ASC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.pool.Query(ctx, query, key.ContractAddress, key.Network, key.MarketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *PgMessageRepository) LatestBySender(ctx context.Context, senderAddress string) (domain.ChatMessage, error) {
	const query = `
		SELECT ` + messageColumns + `
		FROM chat_messages
		WHERE sender_address = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanMessage(r.pool.QueryRow(ctx, query, senderAddress))
}

func scanMessage(row pgx.Row) (domain.ChatMessage, error) {
	var msg domain.ChatMessage
	err := row.Scan(
		&msg.ID,
		&msg.Market.MarketID,
		&msg.Market.ContractAddress,
		&msg.Market.Network,
		&msg.SenderAddress,
		&msg.Body,
		&msg.CreatedAt,
	)
	return msg, err
}
