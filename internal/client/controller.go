package client

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"market-chat/internal/domain"
	"market-chat/internal/realtime"
)

// Estados de la vista de una sala. La autenticación y el estado de la lista
// son ejes ortogonales; el countdown de rate limit es un sub-estado aparte.

type AuthState int

const (
	Unauthenticated AuthState = iota
	Authenticating
	Authenticated
)

type ListState int

const (
	Loading ListState = iota
	Ready
)

// ErrNotEligible corta el envío cuando el predicado holder/creator da
// negativo; es distinto de (y adicional a) las puertas de sesión y rate
// limit.
var ErrNotEligible = errors.New("not eligible to chat in this market")

// Signer es el colaborador de wallet: produce una sesión firmada nueva.
type Signer interface {
	SignIn(ctx context.Context) (domain.Session, error)
}

// ChatAPI es la superficie del servicio que el controller consume.
type ChatAPI interface {
	Send(ctx context.Context, message, signature, address string, market domain.MarketKey, text string) (domain.ChatMessage, error)
	History(ctx context.Context, market domain.MarketKey, limit int) ([]domain.ChatMessage, error)
}

// EligibilityChecker reporta si la wallet puede participar en la sala.
type EligibilityChecker interface {
	CanParticipate(ctx context.Context, address string, market domain.MarketKey) (bool, error)
}

// Controller mantiene la vista local de una sala: sesión cacheada, lista
// reconciliada por id y countdown de rate limit. El fetch histórico y el
// feed en vivo son entradas iguales de la misma reconciliación; la
// idempotencia por id resuelve el duplicado cuando ambos entregan el mismo
// mensaje.
type Controller struct {
	market      domain.MarketKey
	api         ChatAPI
	signer      Signer
	eligibility EligibilityChecker
	distributor realtime.Distributor
	now         func() time.Time

	mu         sync.Mutex
	auth       AuthState
	list       ListState
	session    domain.Session
	hasSession bool
	countdown  int
	byID       map[string]struct{}
	messages   []domain.ChatMessage
	sub        realtime.Subscription
}

func NewController(
	market domain.MarketKey,
	api ChatAPI,
	signer Signer,
	eligibility EligibilityChecker,
	distributor realtime.Distributor,
) *Controller {
	if distributor == nil {
		distributor = realtime.NopDistributor{}
	}
	return &Controller{
		market:      market.Normalized(),
		api:         api,
		signer:      signer,
		eligibility: eligibility,
		distributor: distributor,
		now:         time.Now,
		byID:        make(map[string]struct{}),
	}
}

// Open suscribe al stream de la sala y carga el historial inicial. El orden
// de llegada entre el fetch y el primer push no está garantizado; la
// reconciliación por id absorbe la carrera.
func (c *Controller) Open(ctx context.Context) error {
	sub, err := c.distributor.Subscribe(ctx, c.market)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	go func() {
		for ev := range sub.Events() {
			if ev.Type == realtime.EventResync {
				// Lo publicado durante el corte no llega por el feed; solo
				// el refetch lo recupera. Si falla, el próximo corte
				// reintenta.
				_ = c.Resync(ctx)
				continue
			}
			c.apply(ev)
		}
	}()

	return c.Resync(ctx)
}

// Resync refetchea el historial completo y lo mezcla. Se usa al montar y
// tras una reconexión, porque el distribuidor no bufferea lo perdido.
func (c *Controller) Resync(ctx context.Context) error {
	history, err := c.api.History(ctx, c.market, 0)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, msg := range history {
		c.mergeLocked(msg)
	}
	c.list = Ready
	return nil
}

func (c *Controller) apply(ev realtime.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Type {
	case realtime.EventInsert:
		if ev.Message != nil {
			c.mergeLocked(*ev.Message)
		}
	case realtime.EventDelete:
		// Borrar un id desconocido es un no-op, no un error.
		c.removeLocked(ev.MessageID)
	}
}

func (c *Controller) mergeLocked(msg domain.ChatMessage) {
	if _, known := c.byID[msg.ID]; known {
		return
	}
	c.byID[msg.ID] = struct{}{}
	c.messages = append(c.messages, msg)
	sort.SliceStable(c.messages, func(i, j int) bool {
		a, b := c.messages[i], c.messages[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func (c *Controller) removeLocked(id string) {
	if _, known := c.byID[id]; !known {
		return
	}
	delete(c.byID, id)
	for i, msg := range c.messages {
		if msg.ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return
		}
	}
}

// Send obtiene (o reutiliza) la sesión, chequea elegibilidad y envía. Un
// resultado RateLimited arranca el countdown local en vez de tratarse como
// error de UI.
func (c *Controller) Send(ctx context.Context, text string) error {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}

	eligible, err := c.eligibility.CanParticipate(ctx, sess.Address, c.market)
	if err != nil {
		return err
	}
	if !eligible {
		return ErrNotEligible
	}

	msg, err := c.api.Send(ctx, sess.Message, sess.Signature, sess.Address, c.market, text)
	if err != nil {
		var rl *domain.RateLimitError
		if errors.As(err, &rl) {
			c.mu.Lock()
			c.countdown = rl.WaitSeconds
			c.mu.Unlock()
		}
		return err
	}

	// Mezcla optimista: cuando llegue el push del mismo id será un no-op.
	c.mu.Lock()
	c.mergeLocked(msg)
	c.mu.Unlock()
	return nil
}

// ensureSession devuelve la sesión cacheada si sigue vigente o pide una
// nueva al firmante de la wallet.
func (c *Controller) ensureSession(ctx context.Context) (domain.Session, error) {
	c.mu.Lock()
	if c.hasSession && !c.session.Expired(c.now()) {
		sess := c.session
		c.mu.Unlock()
		return sess, nil
	}
	c.auth = Authenticating
	c.mu.Unlock()

	sess, err := c.signer.SignIn(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.auth = Unauthenticated
		c.hasSession = false
		return domain.Session{}, err
	}
	c.session = sess
	c.hasSession = true
	c.auth = Authenticated
	return sess, nil
}

// Tick decrementa el countdown; lo dispara un timer local de a un segundo.
// Es una aproximación de UI y puede derivar del cooldown real del servidor.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.countdown > 0 {
		c.countdown--
	}
}

// Countdown devuelve los segundos restantes; 0 significa Idle.
func (c *Controller) Countdown() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countdown
}

// Messages devuelve una copia de la vista reconciliada, en orden de
// creación ascendente.
func (c *Controller) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Controller) AuthState() AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth
}

func (c *Controller) ListState() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list
}

// Close cierra la suscripción y limpia el countdown; nada queda bloqueado
// tras desmontar la vista.
func (c *Controller) Close() error {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.countdown = 0
	c.mu.Unlock()
	if sub != nil {
		return sub.Close()
	}
	return nil
}
