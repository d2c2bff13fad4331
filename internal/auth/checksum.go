package auth

import (
	"strings"

	"golang.org/x/crypto/sha3"
)

// ChecksumAddress renderiza una dirección con mayúsculas EIP-55 para
// mostrarla; la comparación en el resto del sistema es case-insensitive.
func ChecksumAddress(address string) string {
	hexAddr := strings.TrimPrefix(strings.ToLower(address), "0x")
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(hexAddr))
	sum := h.Sum(nil)

	out := make([]byte, len(hexAddr))
	for i := 0; i < len(hexAddr); i++ {
		c := hexAddr[i]
		if c >= 'a' && c <= 'f' {
			nibble := sum[i/2]
			if i%2 == 0 {
				nibble >>= 4
			}
			if nibble&0x0f >= 8 {
				c = c - 'a' + 'A'
			}
		}
		out[i] = c
	}
	return "0x" + string(out)
}
