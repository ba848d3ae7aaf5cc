package queue

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

type Consumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	qReq   string
	qRes   string
	worker *Worker
}

// NewConsumer returns nil (and no error) when url is empty.
func NewConsumer(url, qReq, qRes string, w *Worker) (*Consumer, error) {
	if url == "" {
		return nil, nil
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	c := &Consumer{conn: conn, ch: ch, qReq: qReq, qRes: qRes, worker: w}
	for _, q := range []string{qReq, qRes} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			c.Close()
			return nil, err
		}
	}
	// un movimiento a la vez: el stock es read-modify-write
	if err := ch.Qos(1, 0, false); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Consumer) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Consumer) publishJSON(q string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.ch.Publish("", q, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Start consumes the request queue in one goroutine, so submissions are
// handled strictly one after another. It returns once consuming has begun.
func (c *Consumer) Start(ctx context.Context) error {
	if c == nil {
		return nil
	}
	msgs, err := c.ch.Consume(c.qReq, "bookstock-movement-worker", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					log.Warn().Str("queue", c.qReq).Msg("movement.request: channel closed")
					return
				}
				res, valid := c.worker.Handle(ctx, m.Body)
				if valid {
					if err := c.publishJSON(c.qRes, res); err != nil {
						log.Error().Err(err).Str("request", res.RequestID).Msg("movement.result: publish failed")
					}
				}
				_ = m.Ack(false)
			}
		}
	}()
	return nil
}
