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

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeJobCompleted      MessageType = "job.completed"
	MessageTypeCheckpointDecided MessageType = "checkpoint.decided"
)

// Publisher публикует уведомления в RabbitMQ.
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

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// JobCompletedPayload — payload уведомления о завершённом job.
type JobCompletedPayload struct {
	JobID      uuid.UUID `json:"job_id"`
	ScheduleID string    `json:"schedule_id,omitempty"`
	DagPath    string    `json:"dag_path"`
	Tenant     string    `json:"tenant"`
	Status     string    `json:"status"` // success, retry или failed
	Error      string    `json:"error,omitempty"`
	Attempts   int       `json:"attempts"`
}

// CheckpointDecidedPayload — payload уведомления о решённом checkpoint.
// Потребитель: workflow-движок, возобновляющий приостановленный run.
type CheckpointDecidedPayload struct {
	CheckpointID string `json:"checkpoint_id"`
	DagRunID     string `json:"dag_run_id"`
	TaskID       string `json:"task_id"`
	Tenant       string `json:"tenant"`
	Status       string `json:"status"` // approved, rejected или expired
	DecidedBy    string `json:"decided_by,omitempty"`
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
			string(exchange),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт брокера
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
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

// PublishJobCompleted публикует уведомление о завершённом job.
func (p *Publisher) PublishJobCompleted(ctx context.Context, payload JobCompletedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeJobCompleted,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeJobs, RoutingKeyCompleted, msg)
}

// PublishCheckpointDecided публикует уведомление о решённом checkpoint.
func (p *Publisher) PublishCheckpointDecided(ctx context.Context, payload CheckpointDecidedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeCheckpointDecided,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeCheckpoints, RoutingKeyDecided, msg)
}
