package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"market-chat/internal/domain"
	"market-chat/internal/repository"
)

const (
	ActionHide   = "hide"
	ActionUnhide = "unhide"
)

// Placeholders de redacción, uno por categoría de campo. La redacción es
// solo de lectura: el registro del mercado nunca se muta, así que
// des-ocultar restaura el valor original intacto.
const (
	HiddenTextPlaceholder  = "[hidden by moderators]"
	HiddenLinkPlaceholder  = "[link removed by moderators]"
	HiddenImagePlaceholder = "/img/hidden-by-moderators.png"
)

// ModerationService administra el overlay por mercado: qué campos públicos
// están suprimidos y por quién.
type ModerationService struct {
	logger   *zap.Logger
	verifier SessionVerifier
	admins   domain.Allowlist
	records  repository.ModerationRepository
	now      func() time.Time
}

func NewModerationService(
	logger *zap.Logger,
	verifier SessionVerifier,
	admins domain.Allowlist,
	records repository.ModerationRepository,
) *ModerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationService{
		logger:   logger,
		verifier: verifier,
		admins:   admins,
		records:  records,
		now:      time.Now,
	}
}

// SetModeration aplica hide o unhide sobre un mercado. Unhide sobre un
// mercado sin registro es un no-op exitoso; el historial nunca se borra.
func (s *ModerationService) SetModeration(ctx context.Context, message, signature, address string, market domain.MarketKey, action string, hiddenFields []string, reason string) (domain.ModerationRecord, error) {
	sess, err := s.verifier.Verify(message, signature, address)
	if err != nil {
		return domain.ModerationRecord{}, err
	}
	if !s.admins.Contains(sess.Address) {
		return domain.ModerationRecord{}, domain.ErrForbidden
	}

	market = market.Normalized()
	if market.IsZero() {
		return domain.ModerationRecord{}, &domain.ValidationError{Reason: "invalid market"}
	}

	switch action {
	case ActionHide:
		fields, err := normalizeFields(hiddenFields)
		if err != nil {
			return domain.ModerationRecord{}, err
		}
		record := domain.ModerationRecord{
			Market:       market,
			HiddenFields: fields,
			Reason:       strings.TrimSpace(reason),
			ModeratedBy:  sess.Address,
			ModeratedAt:  s.now().UTC(),
			IsActive:     true,
		}
		if err := s.records.Upsert(ctx, record); err != nil {
			s.logger.Error("moderation upsert failed", zap.Error(err), zap.String("market", market.MarketID))
			return domain.ModerationRecord{}, fmt.Errorf("moderation upsert: %w", domain.ErrStorage)
		}
		s.logger.Info("market fields hidden",
			zap.String("market", market.MarketID),
			zap.Strings("fields", fields),
			zap.String("moderated_by", sess.Address),
		)
		return record, nil

	case ActionUnhide:
		found, err := s.records.Deactivate(ctx, market)
		if err != nil {
			s.logger.Error("moderation deactivate failed", zap.Error(err), zap.String("market", market.MarketID))
			return domain.ModerationRecord{}, fmt.Errorf("moderation deactivate: %w", domain.ErrStorage)
		}
		if !found {
			return domain.ModerationRecord{Market: market}, nil
		}
		record, err := s.records.Get(ctx, market)
		if err != nil {
			return domain.ModerationRecord{Market: market}, nil
		}
		return record, nil

	default:
		return domain.ModerationRecord{}, &domain.ValidationError{Reason: "invalid action"}
	}
}

func normalizeFields(fields []string) ([]string, error) {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !domain.ValidModerationField(f) {
			return nil, &domain.ValidationError{Reason: "invalid field: " + f}
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, &domain.ValidationError{Reason: "no fields to hide"}
	}
	return out, nil
}

// IsFieldHidden responde si el campo está actualmente suprimido.
func (s *ModerationService) IsFieldHidden(ctx context.Context, market domain.MarketKey, field string) (bool, error) {
	record, err := s.records.Get(ctx, market.Normalized())
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("moderation lookup: %w", domain.ErrStorage)
	}
	return record.Hides(field), nil
}

// ApplyModeration devuelve el valor original o el placeholder de la
// categoría cuando el campo está oculto.
func (s *ModerationService) ApplyModeration(ctx context.Context, market domain.MarketKey, field, originalValue string) (string, error) {
	hidden, err := s.IsFieldHidden(ctx, market, field)
	if err != nil {
		return originalValue, err
	}
	if !hidden {
		return originalValue, nil
	}
	return placeholderFor(field), nil
}

func placeholderFor(field string) string {
	switch field {
	case domain.FieldImage:
		return HiddenImagePlaceholder
	case domain.FieldEvidence:
		return HiddenLinkPlaceholder
	}
	return HiddenTextPlaceholder
}

// GetBatch trae el overlay de varios mercados de una vez para vistas de
// lista.
func (s *ModerationService) GetBatch(ctx context.Context, markets []domain.MarketKey) ([]domain.ModerationRecord, error) {
	normalized := make([]domain.MarketKey, 0, len(markets))
	for _, m := range markets {
		m = m.Normalized()
		if !m.IsZero() {
			normalized = append(normalized, m)
		}
	}
	records, err := s.records.GetBatch(ctx, normalized)
	if err != nil {
		s.logger.Error("moderation batch query failed", zap.Error(err))
		return nil, fmt.Errorf("moderation batch query: %w", domain.ErrStorage)
	}
	if records == nil {
		records = []domain.ModerationRecord{}
	}
	return records, nil
}
