package domain

import "time"

// Campos públicos de un mercado que los moderadores pueden ocultar.
const (
	FieldName     = "name"
	FieldRules    = "rules"
	FieldEvidence = "evidence"
	FieldImage    = "image"
)

// ValidModerationField indica si el campo puede ser moderado.
func ValidModerationField(field string) bool {
	switch field {
	case FieldName, FieldRules, FieldEvidence, FieldImage:
		return true
	}
	return false
}

// ModerationRecord es el overlay de moderación de un mercado. Al des-ocultar
// no se borra el registro: solo se apaga IsActive, preservando historial.
type ModerationRecord struct {
	Market       MarketKey `json:"market"`
	HiddenFields []string  `json:"hidden_fields"`
	Reason       string    `json:"reason,omitempty"`
	ModeratedBy  string    `json:"moderated_by"`
	ModeratedAt  time.Time `json:"moderated_at"`
	IsActive     bool      `json:"is_active"`
}

// Hides indica si el registro oculta actualmente el campo dado.
func (r ModerationRecord) Hides(field string) bool {
	if !r.IsActive {
		return false
	}
	for _, f := range r.HiddenFields {
		if f == field {
			return true
		}
	}
	return false
}
