package admission

import (
	"strings"
	"unicode/utf8"

	"market-chat/internal/domain"
)

// Razones de rechazo del pipeline; viajan dentro de ValidationError hasta
// el usuario para que sepa qué editar.
const (
	ReasonEmpty     = "message is empty"
	ReasonTooLong   = "message too long"
	ReasonLinks     = "links not allowed"
	ReasonProfanity = "inappropriate language"
	ReasonDuplicate = "duplicate message"
)

const (
	maxBodyLength      = 500
	duplicateThreshold = 0.9
	duplicateMinLength = 10
)

// Pipeline aplica las verificaciones de admisión en orden, cortando en la
// primera falla. La salida es siempre el texto sanitizado listo para
// almacenar; nunca se persiste entrada cruda.
type Pipeline struct {
	links     Matcher
	profanity Matcher
}

func NewPipeline(links, profanity Matcher) *Pipeline {
	if links == nil {
		links = NewLinkMatcher()
	}
	if profanity == nil {
		profanity = NewBlocklistMatcher(nil)
	}
	return &Pipeline{links: links, profanity: profanity}
}

// Process sanitiza y valida un cuerpo candidato contra el mensaje previo
// del mismo remitente. Devuelve el texto admitido o una sola razón de
// rechazo: no hay aplicación parcial.
func (p *Pipeline) Process(raw, previousBody string) (string, error) {
	body := Sanitize(raw)
	if body == "" {
		return "", &domain.ValidationError{Reason: ReasonEmpty}
	}
	if utf8.RuneCountInString(body) > maxBodyLength {
		return "", &domain.ValidationError{Reason: ReasonTooLong}
	}
	if p.links.Matches(body) {
		return "", &domain.ValidationError{Reason: ReasonLinks}
	}
	if p.profanity.Matches(body) {
		return "", &domain.ValidationError{Reason: ReasonProfanity}
	}
	if isDuplicate(body, previousBody) {
		return "", &domain.ValidationError{Reason: ReasonDuplicate}
	}
	return body, nil
}

// isDuplicate compara case-folded contra el mensaje inmediatamente anterior:
// igualdad exacta, o similitud de bigramas > 0.9 cuando ambos superan los 10
// caracteres.
func isDuplicate(body, previous string) bool {
	if previous == "" {
		return false
	}
	a := strings.ToLower(body)
	b := strings.ToLower(previous)
	if a == b {
		return true
	}
	if utf8.RuneCountInString(a) <= duplicateMinLength || utf8.RuneCountInString(b) <= duplicateMinLength {
		return false
	}
	return diceSimilarity(a, b) > duplicateThreshold
}
