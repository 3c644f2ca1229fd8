// Package events fans printed kitchen tickets out to RabbitMQ so kitchen
// printers and displays outside this process can consume them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kiwari-pos/floor/internal/ledger"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	Exchange      = "kitchen.tickets"
	publishWait   = 5 * time.Second
	defaultBuffer = 256
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// TicketMessage is the body published for every printed ticket.
type TicketMessage struct {
	Ticket      ledger.Ticket `json:"ticket"`
	OrderStatus string        `json:"order_status"`
	PublishedAt time.Time     `json:"published_at"`
}

// Publisher observes the ledger and publishes kot.printed events from a
// single worker goroutine. Notify never blocks: when the buffer is full the
// ticket is dropped and logged.
type Publisher struct {
	ch     Channel
	queue  chan ledger.Event
	logger *slog.Logger
}

func NewPublisher(ch Channel, buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Publisher{
		ch:     ch,
		queue:  make(chan ledger.Event, buffer),
		logger: logger,
	}
}

// Dial connects to RabbitMQ and declares the durable topic exchange.
func Dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return conn, ch, nil
}

// RoutingKey returns kot.printed.<order type>, lower-cased.
func RoutingKey(orderType string) string {
	return ledger.EventKOTPrinted + "." + strings.ToLower(orderType)
}

func (p *Publisher) Notify(e ledger.Event) {
	if e.Type != ledger.EventKOTPrinted || e.Ticket == nil {
		return
	}
	select {
	case p.queue <- e:
	default:
		p.logger.Warn("kitchen ticket buffer full, dropping ticket",
			"order_id", e.Order.ID, "kot_id", e.Ticket.KOTID)
	}
}

// Run publishes queued tickets until ctx is done, then flushes what is
// already buffered.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case e := <-p.queue:
			p.publish(e)
		case <-ctx.Done():
			p.drain()
			return nil
		}
	}
}

func (p *Publisher) drain() {
	for {
		select {
		case e := <-p.queue:
			p.publish(e)
		default:
			return
		}
	}
}

func (p *Publisher) publish(e ledger.Event) {
	body, err := json.Marshal(TicketMessage{
		Ticket:      *e.Ticket,
		OrderStatus: e.Order.Status,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("marshal kitchen ticket", "order_id", e.Order.ID, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishWait)
	defer cancel()

	key := RoutingKey(e.Order.OrderType)
	err = p.ch.PublishWithContext(ctx,
		Exchange, // exchange
		key,      // routing key
		false,    // mandatory
		false,    // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    fmt.Sprintf("%d/%s", e.Order.ID, e.Ticket.KOTID),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		p.logger.Error("publish kitchen ticket", "order_id", e.Order.ID, "kot_id", e.Ticket.KOTID, "err", err)
		return
	}
	p.logger.Debug("kitchen ticket published", "routing_key", key, "ticket", e.Ticket.String())
}
