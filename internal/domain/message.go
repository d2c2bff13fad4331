package domain

import "time"

// ChatMessage es un mensaje admitido y almacenado. Body siempre es salida
// sanitizada, nunca el texto crudo del usuario.
type ChatMessage struct {
	ID            string    `json:"id"`
	Market        MarketKey `json:"market"`
	SenderAddress string    `json:"sender_address"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
}
