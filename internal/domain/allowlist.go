package domain

import "strings"

// Allowlist es el conjunto estático de wallets con privilegio de moderación.
// Se construye al inicio del proceso y no muta después.
type Allowlist map[string]struct{}

// NewAllowlist normaliza direcciones a minúsculas y descarta vacíos.
func NewAllowlist(addresses []string) Allowlist {
	set := make(Allowlist, len(addresses))
	for _, a := range addresses {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			set[a] = struct{}{}
		}
	}
	return set
}

func (a Allowlist) Contains(address string) bool {
	_, ok := a[strings.ToLower(strings.TrimSpace(address))]
	return ok
}
