package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	amqpExchange = "outreach"
	amqpDLX      = "outreach.dlx"
	amqpDLQ      = "outreach.dlq"
)

// AMQPOptions configure the RabbitMQ-backed broker.
type AMQPOptions struct {
	URL            string
	Concurrency    func(Stage) int
	MaxAttempts    int
	InitialBackoff time.Duration
}

// AMQPBroker is the RabbitMQ-backed Broker for multi-process deployments.
// Each stage gets a durable queue plus a wait queue whose per-message TTL
// implements publish delays and retry backoff; exhausted jobs land on a
// shared dead-letter queue.
type AMQPBroker struct {
	opts     AMQPOptions
	conn     *amqp.Connection
	ch       *amqp.Channel
	handlers map[Stage]Handler
	cancel   context.CancelFunc
}

// NewAMQP connects to RabbitMQ and declares the stage topology.
func NewAMQP(opts AMQPOptions) (*AMQPBroker, error) {
	if opts.Concurrency == nil {
		opts.Concurrency = func(Stage) int { return 5 }
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 3 * time.Second
	}

	conn, err := amqp.Dial(opts.URL)
	if err != nil {
		return nil, eris.Wrap(err, "queue: dial amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "queue: open channel")
	}

	b := &AMQPBroker{
		opts:     opts,
		conn:     conn,
		ch:       ch,
		handlers: make(map[Stage]Handler, len(Stages)),
	}
	if err := b.declareTopology(); err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

func (b *AMQPBroker) declareTopology() error {
	if err := b.ch.ExchangeDeclare(amqpDLX, "direct", true, false, false, false, nil); err != nil {
		return eris.Wrap(err, "queue: declare dlx")
	}
	if _, err := b.ch.QueueDeclare(amqpDLQ, true, false, false, false, nil); err != nil {
		return eris.Wrap(err, "queue: declare dlq")
	}
	if err := b.ch.ExchangeDeclare(amqpExchange, "direct", true, false, false, false, nil); err != nil {
		return eris.Wrap(err, "queue: declare exchange")
	}

	for _, stage := range Stages {
		key := string(stage)

		if err := b.ch.QueueBind(amqpDLQ, key, amqpDLX, false, nil); err != nil {
			return eris.Wrapf(err, "queue: bind dlq for %s", stage)
		}

		if _, err := b.ch.QueueDeclare(stageQueue(stage), true, false, false, false, amqp.Table{
			"x-dead-letter-exchange":    amqpDLX,
			"x-dead-letter-routing-key": key,
		}); err != nil {
			return eris.Wrapf(err, "queue: declare %s queue", stage)
		}
		if err := b.ch.QueueBind(stageQueue(stage), key, amqpExchange, false, nil); err != nil {
			return eris.Wrapf(err, "queue: bind %s queue", stage)
		}

		// Expired messages on the wait queue route back to the stage queue.
		if _, err := b.ch.QueueDeclare(waitQueue(stage), true, false, false, false, amqp.Table{
			"x-dead-letter-exchange":    amqpExchange,
			"x-dead-letter-routing-key": key,
		}); err != nil {
			return eris.Wrapf(err, "queue: declare %s wait queue", stage)
		}
	}
	return nil
}

func stageQueue(stage Stage) string { return fmt.Sprintf("outreach.%s", stage) }
func waitQueue(stage Stage) string  { return fmt.Sprintf("outreach.%s.wait", stage) }

func (b *AMQPBroker) Subscribe(stage Stage, h Handler) {
	b.handlers[stage] = h
}

func (b *AMQPBroker) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel

	for stage, h := range b.handlers {
		n := b.opts.Concurrency(stage)
		if n <= 0 {
			n = 5
		}

		ch, err := b.conn.Channel()
		if err != nil {
			cancel()
			return eris.Wrapf(err, "queue: consumer channel for %s", stage)
		}
		if err := ch.Qos(n, 0, false); err != nil {
			cancel()
			return eris.Wrapf(err, "queue: qos for %s", stage)
		}
		msgs, err := ch.Consume(stageQueue(stage), "", false, false, false, false, nil)
		if err != nil {
			cancel()
			return eris.Wrapf(err, "queue: consume %s", stage)
		}

		for i := 0; i < n; i++ {
			go b.consume(runCtx, stage, h, msgs)
		}
	}
	return nil
}

func (b *AMQPBroker) consume(ctx context.Context, stage Stage, h Handler, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			b.handleDelivery(ctx, stage, h, d)
		}
	}
}

func (b *AMQPBroker) handleDelivery(ctx context.Context, stage Stage, h Handler, d amqp.Delivery) {
	job := Job{
		ID:      d.MessageId,
		Stage:   stage,
		Payload: d.Body,
		Attempt: headerInt(d.Headers, "x-attempt", 1),
	}

	err := h(ctx, job)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			zap.L().Error("ack failed", zap.String("stage", string(stage)), zap.Error(ackErr))
		}
		return
	}

	if job.Attempt >= b.opts.MaxAttempts {
		zap.L().Error("job dead-lettered",
			zap.String("stage", string(stage)),
			zap.String("job_id", job.ID),
			zap.Int("attempts", job.Attempt),
			zap.Error(err),
		)
		// Nack without requeue routes through the DLX to the shared DLQ.
		if nackErr := d.Nack(false, false); nackErr != nil {
			zap.L().Error("nack failed", zap.String("stage", string(stage)), zap.Error(nackErr))
		}
		return
	}

	backoff := b.opts.InitialBackoff << (job.Attempt - 1)
	zap.L().Warn("job failed, scheduling retry",
		zap.String("stage", string(stage)),
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
		zap.Duration("backoff", backoff),
		zap.Error(err),
	)
	if pubErr := b.publishWait(ctx, stage, d.Body, job.ID, job.Attempt+1, backoff); pubErr != nil {
		zap.L().Error("retry publish failed, requeueing",
			zap.String("stage", string(stage)), zap.Error(pubErr))
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

func (b *AMQPBroker) Publish(ctx context.Context, stage Stage, payload any, opts ...PublishOption) error {
	var po PublishOptions
	for _, opt := range opts {
		opt(&po)
	}

	job, err := NewJob(stage, payload)
	if err != nil {
		return err
	}
	if po.Delay > 0 {
		return b.publishWait(ctx, stage, job.Payload, job.ID, 1, po.Delay)
	}

	err = b.ch.PublishWithContext(ctx, amqpExchange, string(stage), false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    job.ID,
		Body:         job.Payload,
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{"x-attempt": int32(1)},
	})
	return eris.Wrapf(err, "queue: publish %s", stage)
}

func (b *AMQPBroker) publishWait(ctx context.Context, stage Stage, body []byte, id string, attempt int, delay time.Duration) error {
	err := b.ch.PublishWithContext(ctx, "", waitQueue(stage), false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    id,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
		Headers:      amqp.Table{"x-attempt": int32(attempt)},
	})
	return eris.Wrapf(err, "queue: publish %s wait", stage)
}

func (b *AMQPBroker) Depth(stage Stage) int {
	q, err := b.ch.QueueDeclarePassive(stageQueue(stage), true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    amqpDLX,
		"x-dead-letter-routing-key": string(stage),
	})
	if err != nil {
		return 0
	}
	return q.Messages
}

// DeadLetters returns nil; with RabbitMQ the dead-letter queue holds failed
// jobs and is inspected through the broker's own tooling.
func (b *AMQPBroker) DeadLetters() []DeadLetter {
	return nil
}

func (b *AMQPBroker) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	if err := b.ch.Close(); err != nil {
		b.conn.Close()
		return eris.Wrap(err, "queue: close channel")
	}
	return eris.Wrap(b.conn.Close(), "queue: close connection")
}

func headerInt(h amqp.Table, key string, fallback int) int {
	v, ok := h[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	default:
		return fallback
	}
}
