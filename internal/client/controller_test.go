package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"market-chat/internal/domain"
	"market-chat/internal/realtime"
)

var room = domain.MarketKey{MarketID: "42", ContractAddress: "0xc", Network: "polygon"}

func msgAt(id string, at time.Time) domain.ChatMessage {
	return domain.ChatMessage{
		ID:            id,
		Market:        room,
		SenderAddress: "0xa",
		Body:          "body " + id,
		CreatedAt:     at,
	}
}

type stubSigner struct {
	calls   int
	session domain.Session
	err     error
}

func (s *stubSigner) SignIn(context.Context) (domain.Session, error) {
	s.calls++
	if s.err != nil {
		return domain.Session{}, s.err
	}
	return s.session, nil
}

type stubEligibility struct {
	eligible bool
	err      error
}

func (e *stubEligibility) CanParticipate(context.Context, string, domain.MarketKey) (bool, error) {
	return e.eligible, e.err
}

type stubAPI struct {
	mu        sync.Mutex
	history   []domain.ChatMessage
	sendCalls int
	sendErr   error
	sent      domain.ChatMessage
}

func (a *stubAPI) Send(_ context.Context, _, _, _ string, _ domain.MarketKey, _ string) (domain.ChatMessage, error) {
	a.sendCalls++
	if a.sendErr != nil {
		return domain.ChatMessage{}, a.sendErr
	}
	return a.sent, nil
}

func (a *stubAPI) History(context.Context, domain.MarketKey, int) ([]domain.ChatMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history, nil
}

func (a *stubAPI) setHistory(msgs ...domain.ChatMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = msgs
}

// chanDistributor entrega eventos por un canal controlado por el test.
type chanDistributor struct {
	events chan realtime.Event
}

func (d *chanDistributor) PublishInsert(context.Context, domain.ChatMessage) error { return nil }
func (d *chanDistributor) PublishDelete(context.Context, domain.MarketKey, string) error {
	return nil
}

func (d *chanDistributor) Subscribe(context.Context, domain.MarketKey) (realtime.Subscription, error) {
	return &chanSubscription{events: d.events}, nil
}

type chanSubscription struct {
	events chan realtime.Event
}

func (s *chanSubscription) Events() <-chan realtime.Event { return s.events }
func (s *chanSubscription) Close() error {
	close(s.events)
	return nil
}

func activeSession() domain.Session {
	return domain.Session{
		Address:   "0xholder",
		Message:   "assertion",
		Signature: "sig",
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
}

func newTestController(api *stubAPI, signer *stubSigner, elig *stubEligibility) *Controller {
	return NewController(room, api, signer, elig, nil)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestOpen_LoadsHistoryInOrder(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	api := &stubAPI{history: []domain.ChatMessage{msgAt("m1", base), msgAt("m2", base.Add(time.Second))}}
	c := newTestController(api, &stubSigner{}, &stubEligibility{eligible: true})

	if c.ListState() != Loading {
		t.Fatalf("expected Loading before open")
	}
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	if c.ListState() != Ready {
		t.Fatalf("expected Ready after open")
	}
	got := c.Messages()
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "m2" {
		t.Fatalf("unexpected messages %+v", got)
	}
}

func TestApply_InsertDedupAgainstHistory(t *testing.T) {
	// Escenario de dos viewers: el fetch inicial ya trajo m1 y el push en
	// vivo lo vuelve a entregar; debe quedar una sola copia.
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m1 := msgAt("m1", base)
	api := &stubAPI{history: []domain.ChatMessage{m1}}
	c := newTestController(api, &stubSigner{}, &stubEligibility{eligible: true})
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	c.apply(realtime.Event{Type: realtime.EventInsert, Market: room, MessageID: "m1", Message: &m1})
	if got := c.Messages(); len(got) != 1 {
		t.Fatalf("expected 1 message after duplicate push, got %d", len(got))
	}

	m2 := msgAt("m2", base.Add(time.Second))
	c.apply(realtime.Event{Type: realtime.EventInsert, Market: room, MessageID: "m2", Message: &m2})
	if got := c.Messages(); len(got) != 2 || got[1].ID != "m2" {
		t.Fatalf("expected m2 appended, got %+v", got)
	}
}

func TestApply_OutOfOrderInsertsSorted(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestController(&stubAPI{}, &stubSigner{}, &stubEligibility{eligible: true})

	late := msgAt("m2", base.Add(time.Minute))
	early := msgAt("m1", base)
	c.apply(realtime.Event{Type: realtime.EventInsert, MessageID: "m2", Message: &late})
	c.apply(realtime.Event{Type: realtime.EventInsert, MessageID: "m1", Message: &early})

	got := c.Messages()
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "m2" {
		t.Fatalf("expected creation order, got %+v", got)
	}
}

func TestApply_DeleteRemovesAndUnknownIsNoOp(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m1 := msgAt("m1", base)
	c := newTestController(&stubAPI{}, &stubSigner{}, &stubEligibility{eligible: true})
	c.apply(realtime.Event{Type: realtime.EventInsert, MessageID: "m1", Message: &m1})

	c.apply(realtime.Event{Type: realtime.EventDelete, MessageID: "ghost"})
	if got := c.Messages(); len(got) != 1 {
		t.Fatalf("expected unknown delete to be a no-op, got %+v", got)
	}

	c.apply(realtime.Event{Type: realtime.EventDelete, MessageID: "m1"})
	if got := c.Messages(); len(got) != 0 {
		t.Fatalf("expected m1 removed, got %+v", got)
	}

	// Re-insertar después del delete vuelve a entrar.
	c.apply(realtime.Event{Type: realtime.EventInsert, MessageID: "m1", Message: &m1})
	if got := c.Messages(); len(got) != 1 {
		t.Fatalf("expected reinsert after delete, got %+v", got)
	}
}

func TestSend_CachesSessionUntilExpiry(t *testing.T) {
	api := &stubAPI{sent: msgAt("m1", time.Now().UTC())}
	signer := &stubSigner{session: activeSession()}
	c := newTestController(api, signer, &stubEligibility{eligible: true})

	if err := c.Send(context.Background(), "gm"); err != nil {
		t.Fatalf("send: %v", err)
	}
	api.sent = msgAt("m2", time.Now().UTC())
	if err := c.Send(context.Background(), "gm again"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if signer.calls != 1 {
		t.Fatalf("expected single sign-in, got %d", signer.calls)
	}
	if c.AuthState() != Authenticated {
		t.Fatalf("expected Authenticated")
	}
}

func TestSend_ReSignsWhenExpired(t *testing.T) {
	expired := activeSession()
	expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	signer := &stubSigner{session: expired}
	api := &stubAPI{sent: msgAt("m1", time.Now().UTC())}
	c := newTestController(api, signer, &stubEligibility{eligible: true})

	if err := c.Send(context.Background(), "gm"); err != nil {
		t.Fatalf("send: %v", err)
	}
	api.sent = msgAt("m2", time.Now().UTC())
	if err := c.Send(context.Background(), "gm again"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if signer.calls != 2 {
		t.Fatalf("expected re-sign per send with expired session, got %d", signer.calls)
	}
}

func TestSend_SignInFailureLeavesUnauthenticated(t *testing.T) {
	signer := &stubSigner{err: errors.New("user rejected")}
	c := newTestController(&stubAPI{}, signer, &stubEligibility{eligible: true})

	if err := c.Send(context.Background(), "gm"); err == nil {
		t.Fatalf("expected sign-in failure")
	}
	if c.AuthState() != Unauthenticated {
		t.Fatalf("expected Unauthenticated after failure")
	}
}

func TestSend_EligibilityGateBlocksBeforeAPI(t *testing.T) {
	api := &stubAPI{}
	c := newTestController(api, &stubSigner{session: activeSession()}, &stubEligibility{eligible: false})

	if err := c.Send(context.Background(), "gm"); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
	if api.sendCalls != 0 {
		t.Fatalf("expected no API call when not eligible")
	}
}

func TestSend_RateLimitedStartsCountdown(t *testing.T) {
	api := &stubAPI{sendErr: &domain.RateLimitError{WaitSeconds: 3}}
	c := newTestController(api, &stubSigner{session: activeSession()}, &stubEligibility{eligible: true})

	err := c.Send(context.Background(), "gm")
	var rl *domain.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if c.Countdown() != 3 {
		t.Fatalf("expected countdown 3, got %d", c.Countdown())
	}

	for i := 0; i < 5; i++ {
		c.Tick()
	}
	if c.Countdown() != 0 {
		t.Fatalf("expected countdown drained to 0, got %d", c.Countdown())
	}
}

func TestSend_OptimisticMergeDedupsLaterPush(t *testing.T) {
	sent := msgAt("m1", time.Now().UTC())
	api := &stubAPI{sent: sent}
	c := newTestController(api, &stubSigner{session: activeSession()}, &stubEligibility{eligible: true})

	if err := c.Send(context.Background(), "gm"); err != nil {
		t.Fatalf("send: %v", err)
	}
	c.apply(realtime.Event{Type: realtime.EventInsert, MessageID: "m1", Message: &sent})
	if got := c.Messages(); len(got) != 1 {
		t.Fatalf("expected optimistic entry deduped, got %+v", got)
	}
}

func TestResyncEventRefetchesHistory(t *testing.T) {
	// m2 se publica durante un corte del transporte: nunca llega por el
	// feed, solo el refetch disparado por el evento de resync lo recupera.
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	api := &stubAPI{history: []domain.ChatMessage{msgAt("m1", base)}}
	events := make(chan realtime.Event, 1)
	c := NewController(room, api, &stubSigner{}, &stubEligibility{eligible: true}, &chanDistributor{events: events})
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	api.setHistory(msgAt("m1", base), msgAt("m2", base.Add(time.Second)))
	events <- realtime.Event{Type: realtime.EventResync}

	waitFor(t, func() bool { return len(c.Messages()) == 2 })
	if got := c.Messages(); got[0].ID != "m1" || got[1].ID != "m2" {
		t.Fatalf("expected gap recovered in order, got %+v", got)
	}
}

func TestLivePushThroughSubscription(t *testing.T) {
	events := make(chan realtime.Event, 1)
	dist := &chanDistributor{events: events}
	api := &stubAPI{}
	c := NewController(room, api, &stubSigner{}, &stubEligibility{eligible: true}, dist)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	m1 := msgAt("m1", time.Now().UTC())
	events <- realtime.Event{Type: realtime.EventInsert, MessageID: "m1", Message: &m1}
	waitFor(t, func() bool { return len(c.Messages()) == 1 })

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if c.Countdown() != 0 {
		t.Fatalf("expected countdown cleared on close")
	}
}
