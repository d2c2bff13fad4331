package auth

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"market-chat/internal/domain"
)

// Verifier valida aserciones de sign-in firmadas por una wallet. Es puro:
// sin estado de sesión del lado del servidor, cada llamada re-verifica todo.
type Verifier struct {
	skew time.Duration
	now  func() time.Time
}

// NewVerifier construye un verificador con la tolerancia de reloj dada;
// cero o negativa cae al default de 60s.
func NewVerifier(skew time.Duration) *Verifier {
	return NewVerifierWithClock(skew, time.Now)
}

// NewVerifierWithClock permite inyectar el reloj en tests.
func NewVerifierWithClock(skew time.Duration, now func() time.Time) *Verifier {
	if skew <= 0 {
		skew = 60 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Verifier{skew: skew, now: now}
}

// Verify comprueba que la firma sobre el mensaje recupera la dirección
// reclamada y que los campos temporales siguen vigentes. Cualquier falla
// devuelve ErrUnauthenticated sin confianza parcial.
func (v *Verifier) Verify(message, signature, claimedAddress string) (domain.Session, error) {
	if v == nil {
		return domain.Session{}, domain.ErrUnauthenticated
	}

	parsed, err := parseAssertion(message)
	if err != nil {
		return domain.Session{}, fmt.Errorf("parse assertion: %w", domain.ErrUnauthenticated)
	}
	if !strings.EqualFold(parsed.address, claimedAddress) {
		return domain.Session{}, fmt.Errorf("address mismatch: %w", domain.ErrUnauthenticated)
	}

	recovered, err := recoverSigner(message, signature)
	if err != nil {
		return domain.Session{}, fmt.Errorf("recover signer: %w", domain.ErrUnauthenticated)
	}
	if !strings.EqualFold(recovered, claimedAddress) {
		return domain.Session{}, fmt.Errorf("signer mismatch: %w", domain.ErrUnauthenticated)
	}

	now := v.now().UTC()
	if parsed.issuedAt.After(now.Add(v.skew)) {
		return domain.Session{}, fmt.Errorf("issued in the future: %w", domain.ErrUnauthenticated)
	}
	if !parsed.expiration.IsZero() && !parsed.expiration.After(now) {
		return domain.Session{}, fmt.Errorf("assertion expired: %w", domain.ErrUnauthenticated)
	}

	return domain.Session{
		Address:   strings.ToLower(claimedAddress),
		Message:   message,
		Signature: signature,
		Domain:    parsed.domain,
		Nonce:     parsed.nonce,
		ChainID:   parsed.chainID,
		IssuedAt:  parsed.issuedAt,
		ExpiresAt: parsed.expiration,
	}, nil
}

// recoverSigner aplica el digest de personal_sign y recupera la dirección
// que produjo la firma de 65 bytes.
func recoverSigner(message, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return "", err
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	// Las wallets emiten V como 27/28; secp256k1 espera 0/1.
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", fmt.Errorf("invalid recovery id %d", sig[64])
	}
	normalized := make([]byte, 65)
	copy(normalized, sig[:64])
	normalized[64] = v

	digest := personalSignDigest(message)
	pub, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

func personalSignDigest(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}
