package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"tlc-ingest/models"
	"tlc-ingest/utils"
)

// AMQPNotifier publishes one persistent JSON message per uploaded shard to a
// durable queue so downstream jobs can pick the week up.
type AMQPNotifier struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewAMQPNotifier dials the broker, retrying per retry, and declares queue.
func NewAMQPNotifier(ctx context.Context, url, queue string, retry *utils.RetryConfig) (*AMQPNotifier, error) {
	var conn *amqp.Connection
	err := retry.Do(ctx, "amqp dial", func() error {
		var err error
		conn, err = amqp.Dial(url)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: declare %s: %w", queue, err)
	}
	return &AMQPNotifier{conn: conn, ch: ch, queue: queue}, nil
}

// ShardEvent is the message body published for each shard.
type ShardEvent struct {
	Event string        `json:"event"`
	Shard *models.Shard `json:"shard"`
}

// Notify publishes a shard.uploaded event.
func (n *AMQPNotifier) Notify(ctx context.Context, s *models.Shard) error {
	body, err := json.Marshal(ShardEvent{Event: "shard.uploaded", Shard: s})
	if err != nil {
		return fmt.Errorf("amqp: encode event: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    s.Key,
		Timestamp:    s.UploadedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp: publish %s: %w", s.Key, err)
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	if err := n.ch.Close(); err != nil {
		_ = n.conn.Close()
		return err
	}
	return n.conn.Close()
}
