// Package events publishes movement events on a RabbitMQ topic exchange and
// lets other instances subscribe to them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Envelope wraps every payload put on the exchange.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func NewEnvelope(routingKey string, v any) (Envelope, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: encode %s: %w", routingKey, err)
	}
	return Envelope{ID: uuid.NewString(), Type: routingKey, Timestamp: time.Now().UTC(), Payload: payload}, nil
}

// Rabbit is a topic publisher/subscriber. A nil *Rabbit is valid and drops
// everything, which is what you get when no broker URL is configured.
type Rabbit struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewRabbit(url, exchange string) (*Rabbit, error) {
	if url == "" {
		return nil, nil
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Rabbit{conn: conn, ch: ch, exchange: exchange}, nil
}

func (r *Rabbit) Close() {
	if r == nil {
		return
	}
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
}

// PublishJSON wraps v in an Envelope and publishes it under routingKey.
func (r *Rabbit) PublishJSON(ctx context.Context, routingKey string, v any) error {
	if r == nil || r.ch == nil {
		return nil
	}
	env, err := NewEnvelope(routingKey, v)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.ch.PublishWithContext(ctx, r.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Type:         routingKey,
		Timestamp:    env.Timestamp,
		Body:         body,
	})
}

type Handler func(env Envelope) error

// ConsumeTopic binds queueName to the given routing keys and runs handler for
// every delivery until ctx ends or the channel closes.
func (r *Rabbit) ConsumeTopic(ctx context.Context, queueName string, bindings []string, handler Handler) error {
	if r == nil || r.ch == nil {
		return nil
	}
	q, err := r.ch.QueueDeclare(queueName, false, true, false, false, nil)
	if err != nil {
		return err
	}
	for _, rk := range bindings {
		if err := r.ch.QueueBind(q.Name, rk, r.exchange, false, nil); err != nil {
			return err
		}
	}
	msgs, err := r.ch.ConsumeWithContext(ctx, q.Name, "", true, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			var env Envelope
			if err := json.Unmarshal(d.Body, &env); err != nil {
				log.Error().Err(err).Str("rk", d.RoutingKey).Msg("events: invalid envelope")
				continue
			}
			if err := handler(env); err != nil {
				log.Error().Err(err).Str("rk", d.RoutingKey).Msg("events: handler error")
			}
		}
		log.Info().Str("queue", queueName).Msg("events: consumer stopped")
	}()
	return nil
}
