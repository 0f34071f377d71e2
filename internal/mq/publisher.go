package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Hestia/internal/domain"
)

// Publisher публикует события жизненного цикла runs в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение события.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип события (run.created, run.failed, ...).
	Type string `json:"type"`

	// Payload — полезная нагрузка.
	Payload RunEventPayload `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// RunEventPayload — снимок run'а в момент события. Несёт только то,
// что нужно подписчикам для реакции; полное состояние — через API.
type RunEventPayload struct {
	RunID    uuid.UUID        `json:"run_id"`
	Status   domain.RunStatus `json:"status"`
	Phase    domain.Phase     `json:"phase,omitempty"`
	Rewinds  int              `json:"rewinds,omitempty"`
	Selected int              `json:"selected,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// PublishRunEvent публикует событие жизненного цикла run'а.
// Routing key совпадает с типом события.
func (p *Publisher) PublishRunEvent(ctx context.Context, event string, run *domain.Run) error {
	msg := &Message{
		ID:   uuid.New().String(),
		Type: event,
		Payload: RunEventPayload{
			RunID:    run.ID,
			Status:   run.Status,
			Phase:    run.Status.CurrentPhase(),
			Rewinds:  run.Rewinds,
			Selected: len(run.SelectedIDs),
			Error:    run.Error,
		},
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(ExchangeRuns), // exchange
			event,                // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", ExchangeRuns, event, err)
		}

		p.logger.Debug("published run event",
			"run_id", run.ID,
			"event", event,
			"message_id", msg.ID,
		)

		return nil
	})
}
