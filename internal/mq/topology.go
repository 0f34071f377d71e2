package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	// ExchangeRuns — topic exchange событий жизненного цикла runs.
	// Routing key совпадает с типом события (run.created, run.failed, ...).
	ExchangeRuns Exchange = "hestia.runs"
)

// Queues — имена очередей.
const (
	// QueueRunsAudit собирает все события runs для аудита и отладки.
	QueueRunsAudit Queue = "runs.audit"
)

// RoutingKeyAllRuns — binding на все события runs.
const RoutingKeyAllRuns RoutingKey = "run.*"

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна:
// повторное объявление существующей топологии — no-op.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeRuns), // name
			"topic",              // type
			true,                 // durable
			false,                // auto-deleted
			false,                // internal
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeRuns, err)
		}

		_, err = ch.QueueDeclare(
			string(QueueRunsAudit), // name
			true,                   // durable
			false,                  // delete when unused
			false,                  // exclusive
			false,                  // no-wait
			nil,                    // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueRunsAudit, err)
		}

		err = ch.QueueBind(
			string(QueueRunsAudit),    // queue name
			string(RoutingKeyAllRuns), // routing key
			string(ExchangeRuns),      // exchange
			false,                     // no-wait
			nil,                       // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", QueueRunsAudit, ExchangeRuns, err)
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Hestia RabbitMQ Topology:

    hestia.runs (topic)
    └── runs.audit [binding: run.*]
            Consumers: audit tooling, CLI watch
  `
}
