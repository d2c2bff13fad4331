package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"market-chat/internal/domain"
	"market-chat/internal/repository"
)

// RateLimiter aplica el cooldown global por wallet sobre un registro
// durable, de modo que cualquier cantidad de instancias sin estado lo
// compartan. El check y la reserva no son atómicos entre sí: la reserva
// (Touch) recién ocurre cuando el mensaje ya se escribió.
type RateLimiter struct {
	repo     repository.RateLimitRepository
	cooldown time.Duration
	now      func() time.Time
}

func NewRateLimiter(repo repository.RateLimitRepository, cooldown time.Duration) *RateLimiter {
	return NewRateLimiterWithClock(repo, cooldown, time.Now)
}

func NewRateLimiterWithClock(repo repository.RateLimitRepository, cooldown time.Duration, now func() time.Time) *RateLimiter {
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{repo: repo, cooldown: cooldown, now: now}
}

// Check devuelve nil si la wallet puede enviar, o RateLimitError con los
// segundos enteros de espera restantes.
func (l *RateLimiter) Check(ctx context.Context, walletAddress string) error {
	wallet := strings.ToLower(strings.TrimSpace(walletAddress))
	rec, err := l.repo.Get(ctx, wallet)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rate limit lookup: %w", domain.ErrStorage)
	}

	elapsed := l.now().Sub(rec.LastMessageAt)
	if elapsed >= l.cooldown {
		return nil
	}

	total := int(l.cooldown / time.Second)
	wait := total - int(elapsed/time.Second)
	if wait < 1 {
		wait = 1
	}
	if wait > total {
		wait = total
	}
	return &domain.RateLimitError{WaitSeconds: wait}
}

// Touch registra el envío exitoso. El upsert es GREATEST, así que
// lastMessageAt nunca retrocede por escrituras fuera de orden.
func (l *RateLimiter) Touch(ctx context.Context, walletAddress string) error {
	wallet := strings.ToLower(strings.TrimSpace(walletAddress))
	if err := l.repo.Upsert(ctx, wallet, l.now().UTC()); err != nil {
		return fmt.Errorf("rate limit upsert: %w", domain.ErrStorage)
	}
	return nil
}
