package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"market-chat/internal/auth"
	"market-chat/internal/domain"
	"market-chat/internal/service"
)

// ChatHandler expone envío, borrado e historial de mensajes.
type ChatHandler struct {
	logger *zap.Logger
	chat   *service.ChatService
}

func NewChatHandler(logger *zap.Logger, chat *service.ChatService) *ChatHandler {
	return &ChatHandler{logger: logger, chat: chat}
}

type credentials struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Address   string `json:"address" binding:"required"`
}

type marketParams struct {
	MarketID        string `json:"market_id" binding:"required"`
	ContractAddress string `json:"contract_address" binding:"required"`
	Network         string `json:"network" binding:"required"`
}

func (m marketParams) key() domain.MarketKey {
	return domain.MarketKey{
		MarketID:        m.MarketID,
		ContractAddress: m.ContractAddress,
		Network:         m.Network,
	}
}

// SendMessage maneja POST /chat/send.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req struct {
		credentials
		marketParams
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), req.Message, req.Signature, req.Address, req.key(), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": presentMessage(msg)})
}

// DeleteMessage maneja POST /chat/delete.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	var req struct {
		credentials
		MessageID string `json:"message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid delete request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	if err := h.chat.Delete(c.Request.Context(), req.Message, req.Signature, req.Address, req.MessageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// History maneja GET /chat/history.
func (h *ChatHandler) History(c *gin.Context) {
	key := domain.MarketKey{
		MarketID:        c.Query("market_id"),
		ContractAddress: c.Query("contract_address"),
		Network:         c.Query("network"),
	}
	if key.Normalized().IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing market params"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid limit"})
			return
		}
		limit = parsed
	}

	messages, err := h.chat.History(c.Request.Context(), key, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]domain.ChatMessage, len(messages))
	for i, msg := range messages {
		out[i] = presentMessage(msg)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": out})
}

// presentMessage renderiza el remitente en formato EIP-55; el storage y las
// comparaciones siguen en minúsculas.
func presentMessage(msg domain.ChatMessage) domain.ChatMessage {
	msg.SenderAddress = auth.ChecksumAddress(msg.SenderAddress)
	return msg
}
