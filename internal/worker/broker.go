package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"atstailor/internal/config"
	"atstailor/internal/errors"
	"atstailor/internal/retry"
	"atstailor/internal/types"
)

// Channel is the subset of *amqp.Channel used by the worker.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends job status events.
type Publisher interface {
	Publish(ctx context.Context, event types.TailorEvent) error
}

// Broker owns the AMQP connection, one consumer channel and one publisher channel.
type Broker struct {
	conn    *amqp.Connection
	consume Channel
	publish Channel
	cfg     config.QueueConfig
}

// Dial connects to the broker and declares the request queue and the result exchange.
func Dial(cfg config.QueueConfig) (*Broker, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errors.NewQueueError(errors.ErrCodeQueueFailed, "failed to connect to message broker", err)
	}

	consumeCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.NewQueueError(errors.ErrCodeQueueFailed, "failed to open consumer channel", err)
	}
	publishCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.NewQueueError(errors.ErrCodeQueueFailed, "failed to open publisher channel", err)
	}

	b := &Broker{conn: conn, consume: consumeCh, publish: publishCh, cfg: cfg}
	if err := b.declare(); err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

func (b *Broker) declare() error {
	_, err := b.consume.QueueDeclare(
		b.cfg.Queue, // queue name
		true,        // durable (survives broker restarts)
		false,       // auto-delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return errors.NewQueueError(errors.ErrCodeQueueFailed, "failed to declare queue", err).WithContext("queue", b.cfg.Queue)
	}

	err = b.publish.ExchangeDeclare(
		b.cfg.Exchange, // exchange name
		"topic",        // kind
		true,           // durable
		false,          // auto-delete
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return errors.NewQueueError(errors.ErrCodeQueueFailed, "failed to declare exchange", err).WithContext("exchange", b.cfg.Exchange)
	}

	if b.cfg.Prefetch > 0 {
		if err := b.consume.Qos(b.cfg.Prefetch, 0, false); err != nil {
			return errors.NewQueueError(errors.ErrCodeQueueFailed, "failed to set prefetch", err)
		}
	}
	return nil
}

// Deliveries starts consuming the request queue with manual acknowledgement.
func (b *Broker) Deliveries(consumerTag string) (<-chan amqp.Delivery, error) {
	msgs, err := b.consume.Consume(
		b.cfg.Queue, // queue name
		consumerTag, // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return nil, errors.NewQueueError(errors.ErrCodeQueueFailed, "failed to consume queue", err).WithContext("queue", b.cfg.Queue)
	}
	return msgs, nil
}

// Publisher returns a publisher on the result exchange.
func (b *Broker) Publisher() Publisher {
	return NewPublisher(b.publish, b.cfg.Exchange, b.cfg.MaxRetries)
}

// Closed reports the connection closing; the channel receives nil on a clean close.
func (b *Broker) Closed() <-chan *amqp.Error {
	return b.conn.NotifyClose(make(chan *amqp.Error, 1))
}

// Close closes both channels and the connection.
func (b *Broker) Close() error {
	b.consume.Close()
	b.publish.Close()
	return b.conn.Close()
}

type amqpPublisher struct {
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
	ch       Channel
	exchange string
	retry    retry.Config
}

// NewPublisher publishes events as JSON to exchange with routing key job.<id>.
func NewPublisher(ch Channel, exchange string, maxRetries int) Publisher {
	rc := retry.Default
	rc.MaxRetries = maxRetries
	rc.InitialWait = 200 * time.Millisecond
	rc.Retryable = retry.Always
	return &amqpPublisher{ch: ch, exchange: exchange, retry: rc}
}

// RoutingKey is the routing key of every event about job id.
func RoutingKey(id string) string {
	return "job." + id
}

func (p *amqpPublisher) Publish(ctx context.Context, event types.TailorEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.JobID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	err = retry.Run(ctx, p.retry, func() error {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.ch.Publish(p.exchange, RoutingKey(event.JobID), false, false, msg)
	})
	if err != nil {
		return errors.NewQueueError(errors.ErrCodeQueueFailed, "failed to publish event", err).
			WithContext("job_id", event.JobID).
			WithContext("status", string(event.Status))
	}
	return nil
}
