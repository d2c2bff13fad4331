package domain

import (
	"errors"
	"fmt"
)

// Taxonomía de fallas de la frontera del servicio. Todas viajan como
// resultados tipados, nunca como strings sueltos.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrStorage         = errors.New("storage unavailable")
)

// ValidationError indica contenido rechazado por el pipeline de admisión.
// El usuario debe editar y reenviar.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// RateLimitError no es un error para la UI: se muestra como cuenta regresiva.
type RateLimitError struct {
	WaitSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: wait %ds", e.WaitSeconds)
}
