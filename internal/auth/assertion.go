package auth

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"market-chat/internal/domain"
)

// Aserción de sign-in estilo EIP-4361: texto plano canónico que la wallet
// firma. El verificador la reconstruye campo por campo; cualquier desvío
// del formato invalida la aserción completa.

const signInPhrase = " wants you to sign in with your Ethereum account:"

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

type assertion struct {
	domain     string
	address    string
	nonce      string
	chainID    int
	issuedAt   time.Time
	expiration time.Time
}

// parseAssertion extrae los campos relevantes del texto firmado.
// Falla cerrado: faltantes o mal formados devuelven error.
func parseAssertion(message string) (assertion, error) {
	lines := strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return assertion{}, domain.ErrUnauthenticated
	}

	var a assertion
	if !strings.HasSuffix(lines[0], signInPhrase) {
		return assertion{}, domain.ErrUnauthenticated
	}
	a.domain = strings.TrimSuffix(lines[0], signInPhrase)

	a.address = strings.TrimSpace(lines[1])
	if !addressPattern.MatchString(a.address) {
		return assertion{}, domain.ErrUnauthenticated
	}

	for _, line := range lines[2:] {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Nonce":
			a.nonce = value
		case "Chain ID":
			id, err := strconv.Atoi(value)
			if err != nil {
				return assertion{}, domain.ErrUnauthenticated
			}
			a.chainID = id
		case "Issued At":
			ts, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return assertion{}, domain.ErrUnauthenticated
			}
			a.issuedAt = ts
		case "Expiration Time":
			ts, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return assertion{}, domain.ErrUnauthenticated
			}
			a.expiration = ts
		}
	}

	if a.nonce == "" || a.issuedAt.IsZero() {
		return assertion{}, domain.ErrUnauthenticated
	}
	return a, nil
}
