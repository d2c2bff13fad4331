package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"market-chat/internal/domain"
	"market-chat/internal/service"
)

// ModerationHandler expone el overlay de moderación por mercado.
type ModerationHandler struct {
	logger     *zap.Logger
	moderation *service.ModerationService
}

func NewModerationHandler(logger *zap.Logger, moderation *service.ModerationService) *ModerationHandler {
	return &ModerationHandler{logger: logger, moderation: moderation}
}

// ModerateMarket maneja POST /moderation.
func (h *ModerationHandler) ModerateMarket(c *gin.Context) {
	var req struct {
		credentials
		marketParams
		Action       string   `json:"action" binding:"required"`
		HiddenFields []string `json:"hidden_fields"`
		Reason       string   `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid moderation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	record, err := h.moderation.SetModeration(
		c.Request.Context(),
		req.Message, req.Signature, req.Address,
		req.key(), req.Action, req.HiddenFields, req.Reason,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "action": req.Action, "moderation": record})
}

// GetBatch maneja POST /moderation/batch: una sola consulta para todas las
// tarjetas de una vista de lista.
func (h *ModerationHandler) GetBatch(c *gin.Context) {
	var req struct {
		Markets []marketParams `json:"markets" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid batch request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	keys := make([]domain.MarketKey, 0, len(req.Markets))
	for _, m := range req.Markets {
		keys = append(keys, m.key())
	}
	records, err := h.moderation.GetBatch(c.Request.Context(), keys)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "moderations": records})
}
