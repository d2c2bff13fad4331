package admission

import (
	"strings"
	"unicode"
)

// Sanitize limpia un cuerpo de mensaje candidato: quita caracteres de ancho
// cero y de control, colapsa corridas de espacios, recorta extremos y escapa
// caracteres significativos para HTML. Es idempotente: aplicarla sobre su
// propia salida no cambia nada.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if isZeroWidth(r) {
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	collapsed := strings.Join(strings.Fields(b.String()), " ")
	return escapeHTML(collapsed)
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
		return true
	}
	return false
}

// Entidades que emite escapeHTML; un '&' que ya abre una de estas no se
// vuelve a escapar, lo que hace la función idempotente.
var knownEntities = []string{"&amp;", "&lt;", "&gt;", "&quot;", "&#39;"}

func escapeHTML(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		switch s[i] {
		case '&':
			if ent := leadingEntity(s[i:]); ent != "" {
				b.WriteString(ent)
				i += len(ent)
				continue
			}
			b.WriteString("&amp;")
			i++
		case '<':
			b.WriteString("&lt;")
			i++
		case '>':
			b.WriteString("&gt;")
			i++
		case '"':
			b.WriteString("&quot;")
			i++
		case '\'':
			b.WriteString("&#39;")
			i++
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

func leadingEntity(s string) string {
	for _, ent := range knownEntities {
		if strings.HasPrefix(s, ent) {
			return ent
		}
	}
	return ""
}
