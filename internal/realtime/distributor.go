package realtime

import (
	"context"

	"market-chat/internal/domain"
)

// Eventos que viajan a los viewers suscritos a una sala. El canal no
// bufferea eventos perdidos: tras una reconexión el cliente debe refetchear
// el historial completo.

type EventType string

const (
	EventInsert EventType = "insert"
	EventDelete EventType = "delete"
	// EventResync no viaja por el transporte: lo emite la suscripción local
	// tras un corte de conexión, para que el consumidor refetchee lo perdido.
	EventResync EventType = "resync"
)

type Event struct {
	Type      EventType           `json:"type"`
	Market    domain.MarketKey    `json:"market"`
	MessageID string              `json:"message_id"`
	Message   *domain.ChatMessage `json:"message,omitempty"`
}

// Distributor difunde altas y bajas de mensajes a los suscriptores de una
// sala. La capacidad de transporte es un pub/sub administrado; acá solo se
// consume.
type Distributor interface {
	PublishInsert(ctx context.Context, message domain.ChatMessage) error
	PublishDelete(ctx context.Context, market domain.MarketKey, messageID string) error
	Subscribe(ctx context.Context, market domain.MarketKey) (Subscription, error)
}

// Subscription entrega eventos de una sala hasta que se cierra.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// NopDistributor se usa cuando no hay backend de pub/sub configurado: los
// publish no hacen nada y las suscripciones nunca entregan.
type NopDistributor struct{}

func (NopDistributor) PublishInsert(context.Context, domain.ChatMessage) error { return nil }

func (NopDistributor) PublishDelete(context.Context, domain.MarketKey, string) error { return nil }

func (NopDistributor) Subscribe(context.Context, domain.MarketKey) (Subscription, error) {
	return &nopSubscription{events: make(chan Event)}, nil
}

type nopSubscription struct {
	events chan Event
}

func (s *nopSubscription) Events() <-chan Event { return s.events }

func (s *nopSubscription) Close() error {
	close(s.events)
	return nil
}
