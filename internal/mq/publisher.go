package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Strano/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения (совпадает с routing key).
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// DeploymentEvent — payload события выкладки.
type DeploymentEvent struct {
	DeploymentID uuid.UUID               `json:"deployment_id"`
	Task         string                  `json:"task"`
	Hosts        []string                `json:"hosts"`
	Status       domain.DeploymentStatus `json:"status"`
	Release      string                  `json:"release,omitempty"`
	Revision     string                  `json:"revision,omitempty"`
	Error        string                  `json:"error,omitempty"`
	DurationMs   int64                   `json:"duration_ms,omitempty"`
}

// NewDeploymentEvent строит payload из записи о выкладке.
func NewDeploymentEvent(d *domain.Deployment) DeploymentEvent {
	return DeploymentEvent{
		DeploymentID: d.ID,
		Task:         d.Task,
		Hosts:        d.Hosts,
		Status:       d.Status,
		Release:      d.Release,
		Revision:     d.Revision,
		Error:        d.Error,
		DurationMs:   d.Duration().Milliseconds(),
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Type:         string(msg.Type),
				AppId:        connectionName,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishDeployment публикует текущий статус выкладки.
// Routing key: deployment.started | deployment.succeeded | deployment.failed.
func (p *Publisher) PublishDeployment(ctx context.Context, d *domain.Deployment) error {
	key := RoutingKeyFor(d.Status)
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageType(key),
		Payload:   NewDeploymentEvent(d),
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeDeployments, key, msg)
}
