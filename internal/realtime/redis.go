package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"market-chat/internal/domain"
)

// RedisDistributor implementa el fan-out por sala sobre Redis Pub/Sub.
type RedisDistributor struct {
	client *redis.Client
	pub    redisPublisher
	logger *zap.Logger
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

func NewRedisDistributor(client *redis.Client, logger *zap.Logger) *RedisDistributor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisDistributor{client: client, pub: client, logger: logger}
}

// channelFor deriva el canal de la sala a partir de la tripleta normalizada.
func channelFor(market domain.MarketKey) string {
	k := market.Normalized()
	return fmt.Sprintf("chat:room:%s:%s:%s", k.ContractAddress, k.Network, k.MarketID)
}

func (d *RedisDistributor) PublishInsert(ctx context.Context, message domain.ChatMessage) error {
	return d.publish(ctx, Event{
		Type:      EventInsert,
		Market:    message.Market,
		MessageID: message.ID,
		Message:   &message,
	})
}

func (d *RedisDistributor) PublishDelete(ctx context.Context, market domain.MarketKey, messageID string) error {
	return d.publish(ctx, Event{
		Type:      EventDelete,
		Market:    market,
		MessageID: messageID,
	})
}

func (d *RedisDistributor) publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return d.pub.Publish(ctx, channelFor(ev.Market), payload).Err()
}

// Subscribe abre la suscripción al canal de la sala y bombea eventos
// decodificados hasta que se cierre. El transporte no bufferea lo perdido
// durante un corte: tras cada interrupción la suscripción emite un
// EventResync para que el consumidor refetchee el historial.
func (d *RedisDistributor) Subscribe(ctx context.Context, market domain.MarketKey) (Subscription, error) {
	channel := channelFor(market)
	ps := d.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &redisSubscription{ps: ps, events: make(chan Event, 16)}
	go sub.pump(ctx, d.logger, channel)
	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan Event
}

func (s *redisSubscription) Events() <-chan Event { return s.events }

func (s *redisSubscription) Close() error { return s.ps.Close() }

func (s *redisSubscription) pump(ctx context.Context, logger *zap.Logger, channel string) {
	defer close(s.events)
	for {
		msg, err := s.ps.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, redis.ErrClosed) || ctx.Err() != nil {
				return
			}
			// Corte de transporte: el próximo Receive resuscribe, pero lo
			// publicado en el medio ya se perdió.
			logger.Warn("realtime: subscription interrupted", zap.String("channel", channel), zap.Error(err))
			s.events <- Event{Type: EventResync}
			time.Sleep(time.Second)
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			logger.Warn("realtime: invalid event payload", zap.String("channel", channel), zap.Error(err))
			continue
		}
		if strings.TrimSpace(ev.MessageID) == "" {
			continue
		}
		s.events <- ev
	}
}
