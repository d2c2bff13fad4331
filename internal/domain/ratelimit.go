package domain

import "time"

// RateLimitRecord guarda el último envío de una wallet. Es global, no por
// sala: enviar en cualquier sala reinicia el cooldown.
type RateLimitRecord struct {
	WalletAddress string    `json:"wallet_address"`
	LastMessageAt time.Time `json:"last_message_at"`
}
