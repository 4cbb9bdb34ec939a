package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// Publisher is a notification sink that hands events to RabbitMQ.  Success
// means the broker accepted the event; delivery to the holder happens in the
// consumer.
type Publisher struct {
	url     string
	timeout time.Duration // bounds the dial, together with the caller's deadline
	log     *zap.Logger
	now     func() time.Time
	publish func(ctx context.Context, queue string, body []byte) error
}

func NewPublisher(url string, timeout time.Duration, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &Publisher{url: url, timeout: timeout, log: logger, now: time.Now}
	p.publish = p.dialAndPublish
	return p
}

func (p *Publisher) NotifyConfirmed(ctx context.Context, res *model.Reservation) model.NotifyResult {
	return p.send(ctx, QueueConfirmed, ConfirmedEvent(res, p.now()))
}

func (p *Publisher) NotifyFailed(ctx context.Context, n model.FailureNotice) model.NotifyResult {
	return p.send(ctx, QueueFailed, FailedEvent(n, p.now()))
}

func (p *Publisher) send(ctx context.Context, queue string, ev BookingEvent) model.NotifyResult {
	body, err := json.Marshal(ev)
	if err != nil {
		return model.NotifyResult{Error: fmt.Sprintf("marshal event: %v", err)}
	}
	if err := p.publish(ctx, queue, body); err != nil {
		p.log.Warn("publish booking event failed", zap.String("queue", queue), zap.String("holder", ev.HolderEmail), zap.Error(err))
		return model.NotifyResult{Error: err.Error()}
	}
	return model.NotifyResult{Success: true}
}

// dialAndPublish opens a connection per event.  Booking volume is low and a
// fresh connection never outlives a broker restart.
func (p *Publisher) dialAndPublish(ctx context.Context, queue string, body []byte) error {
	timeout, err := p.dialTimeout(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// dialTimeout is the publisher timeout, shortened to what is left of the
// caller's deadline.
func (p *Publisher) dialTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, context.DeadlineExceeded
		}
		if left < timeout {
			timeout = left
		}
	}
	return timeout, nil
}
