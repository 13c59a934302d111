package rabbitmq

import (
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Result tells the consumer what to do with a delivery after its handler ran.
type Result int

const (
	// Ack acknowledges the message: processed, or dropped on purpose.
	Ack Result = iota
	// DeadLetter rejects the message without requeueing it, handing it to the
	// queue's dead-letter policy. Used for payloads that can never succeed.
	DeadLetter
	// Requeue rejects the message and puts it back on the queue for
	// redelivery. Used for transient failures.
	Requeue
)

// Handler processes one delivery body and decides its disposition.
type Handler func(body []byte) Result

// Consumer holds the connection and channel for RabbitMQ.
type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewConsumer creates and returns a new RabbitMQ consumer.
func NewConsumer(amqpURL string) (*Consumer, error) {
	cleanURL, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(cleanURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, ch: ch}, nil
}

// Consume binds a durable queue to a topic exchange and dispatches each
// delivery to the handler on a background goroutine, returning once the
// declarations succeed so callers can bind several queues in sequence.
// Deliveries are acknowledged manually according to the handler's Result, so
// the broker's redelivery and dead-letter policies stay in charge of retries.
func (c *Consumer) Consume(exchange, queueName, routingKey string, handler Handler) error {
	err := c.ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	q, err := c.ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	if err := c.ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
		return err
	}

	msgs, err := c.ch.Consume(
		q.Name,
		"",    // consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			switch handler(d.Body) {
			case Ack:
				d.Ack(false)
			case DeadLetter:
				log.Printf("Rejecting unprocessable message from queue '%s' (routing key %s)", q.Name, d.RoutingKey)
				d.Nack(false, false)
			case Requeue:
				log.Printf("Handler failed transiently for queue '%s'. Re-queuing.", q.Name)
				d.Nack(false, true)
			}
		}
	}()

	return nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Consumer) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
