package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Strano/internal/domain"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// ExchangeDeployments — topic-обменник событий выкладки.
const ExchangeDeployments Exchange = "strano.deployments"

// QueueDeploymentEvents — durable-очередь для внешних потребителей (аудит, чаты).
const QueueDeploymentEvents Queue = "deployments.events"

// Routing keys.
const (
	RoutingKeyStarted   RoutingKey = "deployment.started"
	RoutingKeySucceeded RoutingKey = "deployment.succeeded"
	RoutingKeyFailed    RoutingKey = "deployment.failed"
	RoutingKeyPending   RoutingKey = "deployment.pending"

	// RoutingKeyAll — шаблон для привязки ко всем событиям.
	RoutingKeyAll RoutingKey = "#"
)

// RoutingKeyFor возвращает routing key для статуса выкладки.
func RoutingKeyFor(status domain.DeploymentStatus) RoutingKey {
	switch status {
	case domain.DeploymentStatusRunning:
		return RoutingKeyStarted
	case domain.DeploymentStatusSucceeded:
		return RoutingKeySucceeded
	case domain.DeploymentStatusFailed:
		return RoutingKeyFailed
	case domain.DeploymentStatusPending:
		return RoutingKeyPending
	default:
		return RoutingKey("deployment." + strings.ToLower(status.String()))
	}
}

// SetupTopology объявляет обменник, очередь и привязку.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeDeployments), // name
			"topic",                     // type
			true,                        // durable
			false,                       // auto-deleted
			false,                       // internal
			false,                       // no-wait
			nil,                         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeDeployments, err)
		}

		_, err = ch.QueueDeclare(
			string(QueueDeploymentEvents), // name
			true,                          // durable
			false,                         // delete when unused
			false,                         // exclusive
			false,                         // no-wait
			nil,                           // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueDeploymentEvents, err)
		}

		err = ch.QueueBind(
			string(QueueDeploymentEvents), // queue name
			string(RoutingKeyAll),         // routing key
			string(ExchangeDeployments),   // exchange
			false,                         // no-wait
			nil,                           // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", QueueDeploymentEvents, ExchangeDeployments, err)
		}

		return nil
	})
}

// DeclareTailQueue создаёт временную очередь для `strano events`.
//
// Очередь эксклюзивная и удаляется при отключении, поэтому
// просмотр событий не забирает сообщения из deployments.events.
func DeclareTailQueue(ctx context.Context, conn *Connection, pattern RoutingKey) (Queue, error) {
	if pattern == "" {
		pattern = RoutingKeyAll
	}

	var name Queue
	err := conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		q, err := ch.QueueDeclare(
			"",    // name (server-generated)
			false, // durable
			true,  // delete when unused
			true,  // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare tail queue: %w", err)
		}

		if err := ch.QueueBind(q.Name, string(pattern), string(ExchangeDeployments), false, nil); err != nil {
			return fmt.Errorf("bind tail queue: %w", err)
		}

		name = Queue(q.Name)
		return nil
	})
	return name, err
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Strano RabbitMQ Topology:

    strano.deployments (topic)
    ├── deployments.events [routing: #]
    │       Consumer: external (audit, chat notifications)
    └── amq.gen-* [routing: deployment.#, exclusive]
            Consumer: strano events
  `
}
