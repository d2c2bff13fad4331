package domain

import "strings"

// MarketKey identifica un mercado (y su sala de chat) de forma única.
// El mismo marketId puede repetirse entre redes o contratos, por eso la
// identidad es la tripleta completa.
type MarketKey struct {
	MarketID        string `json:"market_id"`
	ContractAddress string `json:"contract_address"`
	Network         string `json:"network"`
}

// Normalized devuelve la clave con dirección y red en minúsculas.
func (k MarketKey) Normalized() MarketKey {
	return MarketKey{
		MarketID:        strings.TrimSpace(k.MarketID),
		ContractAddress: strings.ToLower(strings.TrimSpace(k.ContractAddress)),
		Network:         strings.ToLower(strings.TrimSpace(k.Network)),
	}
}

// IsZero indica si falta algún componente de la clave.
func (k MarketKey) IsZero() bool {
	return k.MarketID == "" || k.ContractAddress == "" || k.Network == ""
}
