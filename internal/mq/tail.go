package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Event — событие выкладки, полученное из exchange.
type Event struct {
	ID         string
	Type       MessageType
	Timestamp  time.Time
	Deployment DeploymentEvent
}

// EventHandler получает события по одному в порядке доставки.
type EventHandler func(ctx context.Context, e Event)

// Tail читает события выкладок из временной очереди (`strano events`).
//
// Сообщения подтверждаются брокером при доставке: очередь
// эксклюзивная и живёт только пока жив Tail, повторять нечего.
// После переподключения очередь объявляется и привязывается заново.
type Tail struct {
	conn    *Connection
	pattern RoutingKey
	logger  *slog.Logger
}

// NewTail создаёт Tail для шаблона routing key (пустой — все события).
func NewTail(conn *Connection, pattern RoutingKey, logger *slog.Logger) *Tail {
	if pattern == "" {
		pattern = RoutingKeyAll
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tail{conn: conn, pattern: pattern, logger: logger}
}

// Run читает события, пока не отменён ctx.
//
// Ошибка первой подписки возвращается сразу. Дальше обрыв
// соединения только приостанавливает поток до переподключения.
func (t *Tail) Run(ctx context.Context, handler EventHandler) error {
	subscribed := false

	for {
		deliveries, err := t.subscribe(ctx)
		switch {
		case err != nil && !subscribed:
			return err
		case err != nil:
			t.logger.Warn("failed to resubscribe", "pattern", t.pattern, "error", err)
		default:
			subscribed = true
			t.logger.Debug("tailing deployment events", "pattern", t.pattern)
			t.drain(ctx, deliveries, handler)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		t.logger.Warn("event stream interrupted, waiting for reconnect", "pattern", t.pattern)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.conn.ReconnectNotify():
		}
	}
}

// subscribe объявляет временную очередь и начинает потребление с auto-ack.
func (t *Tail) subscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	queue, err := DeclareTailQueue(ctx, t.conn, t.pattern)
	if err != nil {
		return nil, err
	}

	var deliveries <-chan amqp.Delivery
	err = t.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		d, err := ch.Consume(
			string(queue), // queue
			"",            // consumer tag (auto-generated)
			true,          // auto-ack
			true,          // exclusive
			false,         // no-local
			false,         // no-wait
			nil,           // args
		)
		if err != nil {
			return fmt.Errorf("consume %s: %w", queue, err)
		}
		deliveries = d
		return nil
	})
	return deliveries, err
}

// drain передаёт события обработчику, пока канал доставки открыт.
// Сообщения, которые не являются событиями выкладки, пропускаются.
func (t *Tail) drain(ctx context.Context, deliveries <-chan amqp.Delivery, handler EventHandler) {
	for {
		select {
		case <-ctx.Done():
			return

		case raw, ok := <-deliveries:
			if !ok {
				return
			}

			event, err := DecodeEvent(raw.Body)
			if err != nil {
				t.logger.Debug("skipping message", "routing_key", raw.RoutingKey, "error", err)
				continue
			}
			handler(ctx, event)
		}
	}
}

// DecodeEvent разбирает тело сообщения, опубликованного PublishDeployment.
func DecodeEvent(body []byte) (Event, error) {
	var envelope struct {
		ID        string          `json:"id"`
		Type      MessageType     `json:"type"`
		Payload   json.RawMessage `json:"payload"`
		Timestamp time.Time       `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Event{}, fmt.Errorf("unmarshal message: %w", err)
	}

	var payload DeploymentEvent
	if len(envelope.Payload) > 0 {
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return Event{}, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if payload.DeploymentID == uuid.Nil {
		return Event{}, fmt.Errorf("%w: message %s", ErrNotDeploymentEvent, envelope.ID)
	}

	return Event{
		ID:         envelope.ID,
		Type:       envelope.Type,
		Timestamp:  envelope.Timestamp,
		Deployment: payload,
	}, nil
}
