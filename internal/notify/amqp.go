// Package notify announces finished batch runs over AMQP so dashboards can reload.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/joseph-ayodele/candidate-search/internal/entity"
)

// RoutingKey is the topic every refresh event is published under.
const RoutingKey = "candidates.refreshed"

// Channel is the subset of *amqp.Channel used here.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Dial connects to the broker and opens a channel with the topic exchange declared.
func Dial(url, exchange string) (*amqp.Connection, Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

func declareExchange(ch Channel, exchange string) error {
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

// Publisher sends refresh events to the exchange.
type Publisher struct {
	ch       Channel
	exchange string
	logger   *slog.Logger
}

func NewPublisher(ch Channel, exchange string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{ch: ch, exchange: exchange, logger: logger}
}

// PublishRefresh publishes ev as JSON under RoutingKey.
func (p *Publisher) PublishRefresh(ctx context.Context, ev entity.RefreshEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal refresh event: %w", err)
	}
	err = p.ch.Publish(
		p.exchange,
		RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.RunID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish refresh: %w", err)
	}
	p.logger.Info("notify.refresh.published", "run_id", ev.RunID, "candidates", ev.Candidates)
	return nil
}

// Subscriber delivers refresh events from a queue bound to the exchange.
type Subscriber struct {
	ch       Channel
	exchange string
	queue    string
	logger   *slog.Logger
}

// NewSubscriber uses queue when set, or a server-named exclusive queue otherwise.
func NewSubscriber(ch Channel, exchange, queue string, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{ch: ch, exchange: exchange, queue: queue, logger: logger}
}

// Run calls handle for every refresh event until ctx is done or the channel closes.
// Malformed messages are logged and dropped.
func (s *Subscriber) Run(ctx context.Context, handle func(context.Context, entity.RefreshEvent)) error {
	named := s.queue != ""
	q, err := s.ch.QueueDeclare(
		s.queue,
		named,  // durable
		!named, // auto-delete
		!named, // exclusive
		false,  // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := s.ch.QueueBind(q.Name, RoutingKey, s.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	msgs, err := s.ch.Consume(
		q.Name,
		"",    // consumer tag
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}
	s.logger.Info("notify.subscribe.start", "queue", q.Name, "exchange", s.exchange)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("rabbitmq delivery channel closed")
			}
			var ev entity.RefreshEvent
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				s.logger.Warn("notify.subscribe.bad_message", "error", err, "bytes", len(msg.Body))
				continue
			}
			s.logger.Info("notify.subscribe.refresh", "run_id", ev.RunID, "candidates", ev.Candidates)
			handle(ctx, ev)
		}
	}
}
