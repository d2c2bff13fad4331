package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"market-chat/internal/domain"
)

type mockRateLimitRepo struct {
	records map[string]time.Time
	getErr  error
}

func newMockRateLimitRepo() *mockRateLimitRepo {
	return &mockRateLimitRepo{records: make(map[string]time.Time)}
}

func (m *mockRateLimitRepo) Get(_ context.Context, wallet string) (domain.RateLimitRecord, error) {
	if m.getErr != nil {
		return domain.RateLimitRecord{}, m.getErr
	}
	at, ok := m.records[wallet]
	if !ok {
		return domain.RateLimitRecord{}, pgx.ErrNoRows
	}
	return domain.RateLimitRecord{WalletAddress: wallet, LastMessageAt: at}, nil
}

func (m *mockRateLimitRepo) Upsert(_ context.Context, wallet string, at time.Time) error {
	if prev, ok := m.records[wallet]; ok && prev.After(at) {
		return nil
	}
	m.records[wallet] = at
	return nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimiter_FirstSendAllowed(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewRateLimiterWithClock(newMockRateLimitRepo(), time.Minute, clock.Now)

	if err := l.Check(context.Background(), "0xAbC"); err != nil {
		t.Fatalf("expected allowed, got %v", err)
	}
}

func TestRateLimiter_DeniedWithinWindow(t *testing.T) {
	repo := newMockRateLimitRepo()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewRateLimiterWithClock(repo, time.Minute, clock.Now)

	if err := l.Touch(context.Background(), "0xabc"); err != nil {
		t.Fatalf("touch: %v", err)
	}

	clock.Advance(10 * time.Second)
	err := l.Check(context.Background(), "0xABC")
	var rl *domain.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.WaitSeconds != 50 {
		t.Fatalf("expected 50s wait, got %d", rl.WaitSeconds)
	}
}

func TestRateLimiter_WaitAlwaysInWindow(t *testing.T) {
	repo := newMockRateLimitRepo()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewRateLimiterWithClock(repo, time.Minute, clock.Now)
	_ = l.Touch(context.Background(), "0xabc")

	for _, elapsed := range []time.Duration{0, 500 * time.Millisecond, 30 * time.Second, 59*time.Second + 900*time.Millisecond} {
		probe := &fakeClock{t: clock.t.Add(elapsed)}
		probeLimiter := NewRateLimiterWithClock(repo, time.Minute, probe.Now)
		err := probeLimiter.Check(context.Background(), "0xabc")
		var rl *domain.RateLimitError
		if !errors.As(err, &rl) {
			t.Fatalf("elapsed %v: expected RateLimitError, got %v", elapsed, err)
		}
		if rl.WaitSeconds < 1 || rl.WaitSeconds > 60 {
			t.Fatalf("elapsed %v: wait %d out of [1,60]", elapsed, rl.WaitSeconds)
		}
	}
}

func TestRateLimiter_AllowedAfterCooldown(t *testing.T) {
	repo := newMockRateLimitRepo()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewRateLimiterWithClock(repo, time.Minute, clock.Now)
	_ = l.Touch(context.Background(), "0xabc")

	clock.Advance(60 * time.Second)
	if err := l.Check(context.Background(), "0xabc"); err != nil {
		t.Fatalf("expected allowed after cooldown, got %v", err)
	}
}

func TestRateLimiter_GlobalAcrossRooms(t *testing.T) {
	// El registro es por wallet, no por sala: un Touch bloquea en todas.
	repo := newMockRateLimitRepo()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewRateLimiterWithClock(repo, time.Minute, clock.Now)
	_ = l.Touch(context.Background(), "0xAbC")

	clock.Advance(time.Second)
	if err := l.Check(context.Background(), "0xabc"); err == nil {
		t.Fatalf("expected denial independent of address casing")
	}
}

func TestRateLimiter_StorageErrorSurfaced(t *testing.T) {
	repo := newMockRateLimitRepo()
	repo.getErr = errors.New("connection refused")
	l := NewRateLimiterWithClock(repo, time.Minute, nil)

	if err := l.Check(context.Background(), "0xabc"); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
