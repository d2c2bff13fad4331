package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"market-chat/internal/domain"
)

// respondError mapea la taxonomía tipada a respuestas JSON estables. El
// cliente distingue RateLimited del resto para dibujar un countdown en vez
// de un banner de error; los detalles de storage nunca llegan al usuario.
func respondError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	var rl *domain.RateLimitError

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthenticated"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "forbidden"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": verr.Reason})
	case errors.As(err, &rl):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success":      false,
			"error":        "rate limited",
			"wait_seconds": rl.WaitSeconds,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
	}
}
