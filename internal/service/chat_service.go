package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"market-chat/internal/admission"
	"market-chat/internal/domain"
	"market-chat/internal/realtime"
	"market-chat/internal/repository"
)

// SessionVerifier valida la aserción firmada contra la wallet reclamada.
type SessionVerifier interface {
	Verify(message, signature, claimedAddress string) (domain.Session, error)
}

// ChatService orquesta el envío y borrado de mensajes: verificación de
// sesión, elegibilidad, admisión, rate limit, escritura y fan-out.
type ChatService struct {
	logger      *zap.Logger
	verifier    SessionVerifier
	eligibility EligibilityChecker
	pipeline    *admission.Pipeline
	limiter     *RateLimiter
	messages    repository.MessageRepository
	admins      domain.Allowlist
	distributor realtime.Distributor
	now         func() time.Time
}

func NewChatService(
	logger *zap.Logger,
	verifier SessionVerifier,
	eligibility EligibilityChecker,
	pipeline *admission.Pipeline,
	limiter *RateLimiter,
	messages repository.MessageRepository,
	admins domain.Allowlist,
	distributor realtime.Distributor,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if distributor == nil {
		distributor = realtime.NopDistributor{}
	}
	return &ChatService{
		logger:      logger,
		verifier:    verifier,
		eligibility: eligibility,
		pipeline:    pipeline,
		limiter:     limiter,
		messages:    messages,
		admins:      admins,
		distributor: distributor,
		now:         time.Now,
	}
}

// Send admite y almacena un mensaje. El evento de inserción llega a todos
// los suscriptores de la sala vía el distribuidor.
func (s *ChatService) Send(ctx context.Context, message, signature, address string, market domain.MarketKey, text string) (domain.ChatMessage, error) {
	sess, err := s.verifier.Verify(message, signature, address)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	market = market.Normalized()
	if market.IsZero() {
		return domain.ChatMessage{}, &domain.ValidationError{Reason: "invalid market"}
	}

	eligible, err := s.eligibility.CanParticipate(ctx, sess.Address, market)
	if err != nil {
		s.logger.Error("eligibility check failed", zap.Error(err), zap.String("address", sess.Address))
		return domain.ChatMessage{}, fmt.Errorf("eligibility check: %w", domain.ErrStorage)
	}
	if !eligible {
		return domain.ChatMessage{}, domain.ErrForbidden
	}

	// El contexto del pipeline es el último mensaje global del remitente,
	// sin importar la sala.
	previous := ""
	last, err := s.messages.LatestBySender(ctx, sess.Address)
	switch {
	case err == nil:
		previous = last.Body
	case !errors.Is(err, pgx.ErrNoRows):
		s.logger.Error("latest message lookup failed", zap.Error(err))
		return domain.ChatMessage{}, fmt.Errorf("latest message lookup: %w", domain.ErrStorage)
	}

	body, err := s.pipeline.Process(text, previous)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	if err := s.limiter.Check(ctx, sess.Address); err != nil {
		return domain.ChatMessage{}, err
	}

	msg := domain.ChatMessage{
		ID:            uuid.NewString(),
		Market:        market,
		SenderAddress: strings.ToLower(sess.Address),
		Body:          body,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		s.logger.Error("message insert failed", zap.Error(err), zap.String("market", market.MarketID))
		return domain.ChatMessage{}, fmt.Errorf("message insert: %w", domain.ErrStorage)
	}

	// La reserva del cooldown va después de la escritura; si falla no
	// cancela el mensaje ya almacenado.
	if err := s.limiter.Touch(ctx, sess.Address); err != nil {
		s.logger.Warn("rate limit touch failed", zap.Error(err), zap.String("address", sess.Address))
	}
	if err := s.distributor.PublishInsert(ctx, msg); err != nil {
		s.logger.Warn("insert fan-out failed", zap.Error(err), zap.String("message_id", msg.ID))
	}
	return msg, nil
}

// Delete borra definitivamente un mensaje; solo wallets del allowlist. Un
// id inexistente reporta éxito para tolerar reintentos del cliente.
func (s *ChatService) Delete(ctx context.Context, message, signature, address, messageID string) error {
	sess, err := s.verifier.Verify(message, signature, address)
	if err != nil {
		return err
	}
	if !s.admins.Contains(sess.Address) {
		return domain.ErrForbidden
	}

	deleted, err := s.messages.Delete(ctx, messageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		s.logger.Error("message delete failed", zap.Error(err), zap.String("message_id", messageID))
		return fmt.Errorf("message delete: %w", domain.ErrStorage)
	}

	if err := s.distributor.PublishDelete(ctx, deleted.Market, messageID); err != nil {
		s.logger.Warn("delete fan-out failed", zap.Error(err), zap.String("message_id", messageID))
	}
	return nil
}

// History devuelve los mensajes de la sala en orden de creación ascendente.
func (s *ChatService) History(ctx context.Context, market domain.MarketKey, limit int) ([]domain.ChatMessage, error) {
	messages, err := s.messages.ListByRoom(ctx, market.Normalized(), limit)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err), zap.String("market", market.MarketID))
		return nil, fmt.Errorf("history query: %w", domain.ErrStorage)
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	return messages, nil
}
