package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/notify"
)

// Relay delivers a rendered message to a holder.  notify.EmailSink is one.
type Relay interface {
	Send(ctx context.Context, to string, m notify.Message) error
}

// Consumer drains both booking queues.  Every event is appended to
// <dir>/booking.log as one line and then relayed to the holder.
type Consumer struct {
	url   string
	dir   string
	relay Relay
	log   *zap.Logger

	mu sync.Mutex // serializes writes to booking.log
}

func NewConsumer(url, dir string, relay Relay, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = "logs"
	}
	return &Consumer{url: url, dir: dir, relay: relay, log: logger}
}

// Run connects and consumes until ctx is done, reconnecting with backoff
// whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("booking consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("booking consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("booking consumer: set QoS failed", zap.Error(err))
	}

	streams := make([]<-chan amqp.Delivery, 0, 2)
	for _, q := range []string{QueueConfirmed, QueueFailed} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		streams = append(streams, msgs)
	}

	confirmed, failed := streams[0], streams[1]
	for {
		var d amqp.Delivery
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-confirmed:
		case d, ok = <-failed:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.handleMessage(ctx, d.Body); err != nil {
			c.log.Error("booking consumer: handle message failed", zap.Error(err))
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

// handleMessage logs one event and relays it.  A relay failure is logged
// but does not reject the message; the log line is already written.
func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := c.appendLine(formatLine(ev)); err != nil {
		return err
	}
	if c.relay == nil || ev.HolderEmail == "" {
		return nil
	}

	var m notify.Message
	switch ev.Type {
	case QueueFailed:
		m = notify.Failure(ev.notice())
	default:
		m = notify.Confirmation(ev.reservation())
	}
	if err := c.relay.Send(ctx, ev.HolderEmail, m); err != nil {
		c.log.Warn("booking consumer: relay failed",
			zap.String("type", ev.Type), zap.String("holder", ev.HolderEmail), zap.Error(err))
	}
	return nil
}

func (c *Consumer) appendLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev BookingEvent) string {
	seats := "[" + strings.Join(ev.SeatLabels, ",") + "]"
	d := ev.Departure
	route := fmt.Sprintf("%s -> %s", d.From, d.To)
	if ev.Type == QueueFailed {
		return fmt.Sprintf("[%s] Booking failed | holder=%s | route=%q | date=%s | time=%s | seats=%s | reason=%q\n",
			ev.OccurredAt, ev.HolderEmail, route, d.Date, d.Time, seats, ev.Reason)
	}
	return fmt.Sprintf("[%s] Booking confirmed | reservation_id=%s | holder=%s | route=%q | date=%s | time=%s | price=%.2f | seats=%s\n",
		ev.OccurredAt, ev.ReservationID, ev.HolderEmail, route, d.Date, d.Time, d.Price, seats)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
