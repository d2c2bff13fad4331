package domain

import "time"

// Session es el resultado de verificar una aserción firmada de la wallet.
// Vive del lado del cliente; el servidor nunca la persiste y re-verifica la
// firma en cada operación privilegiada.
type Session struct {
	Address   string    `json:"address"`
	Message   string    `json:"message"`
	Signature string    `json:"signature"`
	Domain    string    `json:"domain,omitempty"`
	Nonce     string    `json:"nonce,omitempty"`
	ChainID   int       `json:"chain_id,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired indica si la sesión ya no sirve al tiempo dado. Una sesión sin
// Expiration Time no expira por sí sola.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !s.ExpiresAt.After(now)
}
