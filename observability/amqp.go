package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/logging"
)

// Publisher is the subset of *amqp.Channel used by AMQPRecorder.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPConfig describes the RabbitMQ connection of an AMQPRecorder.
type AMQPConfig struct {
	URL     string
	Queue   string
	Durable bool
	// Buffer is the number of records queued before new ones are dropped.
	Buffer int
	// PublishTimeout bounds a single publish.
	PublishTimeout time.Duration
}

// AMQPRecorder publishes records as JSON messages to a RabbitMQ queue.
// Record never blocks: records are queued and published by a background
// goroutine, and dropped when the queue is full.
type AMQPRecorder struct {
	pub     Publisher
	queue   string
	timeout time.Duration
	logger  logging.Logger
	records chan core.Record
	done    chan struct{}
	closers []func() error

	closeOnce sync.Once
	mu        sync.Mutex
	dropped   int
}

// DialAMQPRecorder connects to RabbitMQ, declares the queue and starts publishing.
func DialAMQPRecorder(cfg AMQPConfig, logger logging.Logger) (*AMQPRecorder, error) {
	if cfg.URL == "" {
		return nil, errors.New("amqp url must not be empty")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	cfg = withAMQPDefaults(cfg)
	if _, err := ch.QueueDeclare(cfg.Queue, cfg.Durable, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare rabbitmq queue: %w", err)
	}

	r := NewAMQPRecorder(ch, cfg, logger)
	r.closers = append(r.closers, ch.Close, conn.Close)

	return r, nil
}

// NewAMQPRecorder starts publishing to an already declared queue through pub.
func NewAMQPRecorder(pub Publisher, cfg AMQPConfig, logger logging.Logger) *AMQPRecorder {
	cfg = withAMQPDefaults(cfg)
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	r := &AMQPRecorder{
		pub:     pub,
		queue:   cfg.Queue,
		timeout: cfg.PublishTimeout,
		logger:  logger,
		records: make(chan core.Record, cfg.Buffer),
		done:    make(chan struct{}),
	}

	go r.loop()

	return r
}

func withAMQPDefaults(cfg AMQPConfig) AMQPConfig {
	if cfg.Queue == "" {
		cfg.Queue = "tripmesh.records"
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return cfg
}

// Record implements core.Recorder.
func (r *AMQPRecorder) Record(_ context.Context, rec core.Record) {
	select {
	case r.records <- rec:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Dropped returns how many records were discarded because the buffer was full.
func (r *AMQPRecorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *AMQPRecorder) loop() {
	defer close(r.done)

	for rec := range r.records {
		body, err := json.Marshal(rec)
		if err != nil {
			r.logger.Warn("encode record failed", "error", err.Error())
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err = r.pub.PublishWithContext(ctx, "", r.queue, false, false, amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   rec.Timestamp,
			Type:        rec.EventType,
			Body:        body,
		})
		cancel()

		if err != nil {
			r.logger.Warn("publish record failed", "queue", r.queue, "error", err.Error())
		}
	}
}

// Close flushes queued records and closes the connection if this recorder opened it.
// Record must not be called after Close.
func (r *AMQPRecorder) Close() error {
	var errs []error

	r.closeOnce.Do(func() {
		close(r.records)
		<-r.done

		for _, c := range r.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
	})

	return errors.Join(errs...)
}
