package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler — функция обработки run-события.
// Возвращает error, если обработка не удалась (сообщение будет nack).
type Handler func(ctx context.Context, msg *Message) error

// Consumer потребляет run-события из RabbitMQ и переживает
// переподключения соединения.
//
// Два режима работы:
//   - именованная очередь (Queue задана) — долговечная очередь из
//     топологии, например runs.audit;
//   - эфемерный режим (Queue пуста) — объявляется эксклюзивная
//     анонимная очередь, привязанная к hestia.runs по Bind.
//     Очередь исчезает вместе с подписчиком; так работает `run watch`.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	bind     RoutingKey
	handler  Handler
	prefetch int
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди. Пустое значение включает эфемерный режим.
	Queue Queue

	// Bind — routing key привязки эфемерной очереди к hestia.runs.
	// Игнорируется для именованных очередей (они привязаны топологией).
	Bind RoutingKey

	// Handler — обработчик событий.
	Handler Handler

	// Prefetch — количество сообщений, выдаваемых без подтверждения.
	Prefetch int
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	bind := cfg.Bind
	if bind == "" {
		bind = RoutingKeyAllRuns
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		bind:     bind,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Run потребляет события до отмены контекста. При обрыве соединения
// ждёт переподключения и продолжает; для эфемерных очередей после
// переподключения объявляется новая очередь.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
				continue
			}
		}

		c.logger.Info("consumer started", "queue", c.queue)

		if err := c.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, reconnecting", "queue", c.queue)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				continue
			}
		}
	}
}

// setupConsume настраивает канал, очередь и подписку.
func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	queue := string(c.queue)
	if queue == "" {
		q, err := ch.QueueDeclare("", false, true, true, false, nil)
		if err != nil {
			return nil, fmt.Errorf("declare ephemeral queue: %w", err)
		}
		if err := ch.QueueBind(q.Name, string(c.bind), string(ExchangeRuns), false, nil); err != nil {
			return nil, fmt.Errorf("bind ephemeral queue: %w", err)
		}
		queue = q.Name
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			c.handleDelivery(ctx, raw)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal run event",
			"queue", c.queue,
			"error", err,
		)
		// Некорректное сообщение в очередь не возвращаем.
		raw.Nack(false, false)
		return
	}

	if err := c.handler(ctx, &msg); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		raw.Nack(false, true)
		return
	}

	raw.Ack(false)
}
