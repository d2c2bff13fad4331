package admission

import (
	"regexp"
	"strings"
)

// Matcher decide si un texto contiene contenido que la sala no admite.
// Es capacidad inyectada: las listas de patrones y palabras son
// configuración versionable, no literales del pipeline.
type Matcher interface {
	Matches(text string) bool
}

// Patrones por defecto para detección de enlaces: URLs con esquema, hosts
// www., dominios con punto a pelo y literales IPv4 con puerto opcional.
var defaultLinkPatterns = []string{
	`(?i)\b[a-z][a-z0-9+.-]*://\S+`,
	`(?i)(?:^|\s)www\.\S+`,
	`(?i)\b(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}(?::\d{1,5})?\b`,
	`\b(?:\d{1,3}\.){3}\d{1,3}(?::\d{1,5})?\b`,
}

type regexpMatcher struct {
	patterns []*regexp.Regexp
}

// NewLinkMatcher compila los patrones de enlaces por defecto.
func NewLinkMatcher() Matcher {
	m, _ := NewPatternMatcher(defaultLinkPatterns)
	return m
}

// NewPatternMatcher compila una lista arbitraria de expresiones regulares.
func NewPatternMatcher(patterns []string) (Matcher, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &regexpMatcher{patterns: compiled}, nil
}

func (m *regexpMatcher) Matches(text string) bool {
	for _, re := range m.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

type blocklistMatcher struct {
	words map[string]struct{}
}

// NewBlocklistMatcher construye un matcher de palabras bloqueadas. La
// comparación es por token completo tras normalizar leetspeak, nunca por
// substring: "classic" no dispara "ass".
func NewBlocklistMatcher(words []string) Matcher {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = foldLeet(w)
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return &blocklistMatcher{words: set}
}

// Puntuación de borde de token: "damn!" o "(damn)" son la palabra a secas,
// no una sustitución intra-palabra.
const edgePunctuation = "!?.,:;\"()[]¡¿"

func (m *blocklistMatcher) Matches(text string) bool {
	if len(m.words) == 0 {
		return false
	}
	for _, token := range strings.Fields(text) {
		if m.blocked(foldLeet(token)) || m.blocked(foldLeet(strings.Trim(token, edgePunctuation))) {
			return true
		}
	}
	return false
}

func (m *blocklistMatcher) blocked(word string) bool {
	_, ok := m.words[word]
	return ok
}

// foldLeet baja a minúsculas, sustituye dígitos/símbolos usados como letras
// y descarta separadores intra-palabra.
func foldLeet(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range strings.ToLower(token) {
		switch r {
		case '0':
			r = 'o'
		case '1', '!':
			r = 'i'
		case '3':
			r = 'e'
		case '4', '@':
			r = 'a'
		case '5', '$':
			r = 's'
		case '7':
			r = 't'
		case '.', ',', '-', '_', '*', '+', '~', '\'':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
