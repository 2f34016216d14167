/*
Package amqp publishes vacation consumption events to RabbitMQ.

PURPOSE:
  Payroll needs to know when leave is drawn down. After every committed
  consumption the engine hands a vacation.ConsumptionEvent to Publisher,
  which sends it as a persistent JSON message.

TOPOLOGY:
  exchange:    durable direct exchange (AMQP_EXCHANGE)
  queue:       durable "vacation.consumed", bound with the same routing key

USAGE:
  pub, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
  if err != nil {
      return err
  }
  defer pub.Close()
  engine.Publisher = pub

SEE ALSO:
  - vacation/events.go: Publisher interface
  - messages.go: Wire format
*/
package amqp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/warp/vacation-engine/logging"
	"github.com/warp/vacation-engine/vacation"
)

const publishTimeout = 5 * time.Second

type Publisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	log          logrus.FieldLogger

	// amqp091 channels must not be used for concurrent publishes.
	mu sync.Mutex
}

var _ vacation.Publisher = (*Publisher)(nil)

func NewPublisher(url, exchangeName string, log logrus.FieldLogger) (*Publisher, error) {
	if log == nil {
		log = logging.Discard()
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &Publisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		log:          log.WithField(logging.FieldComponent, logging.ComponentAMQP),
	}

	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return p, nil
}

func (p *Publisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = p.channel.QueueDeclare(
		RoutingKeyConsumed, // name
		true,               // durable
		false,              // delete when unused
		false,              // exclusive
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = p.channel.QueueBind(
		RoutingKeyConsumed, // queue name
		RoutingKeyConsumed, // routing key
		p.exchangeName,     // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishConsumption sends event as a persistent message.
func (p *Publisher) PublishConsumption(ctx context.Context, event vacation.ConsumptionEvent) error {
	body, err := NewConsumptionMessage(event).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName,     // exchange
		RoutingKeyConsumed, // routing key
		false,              // mandatory
		false,              // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    event.At,
			Body:         body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		logging.FieldUserID: event.UserID,
		logging.FieldYear:   event.Year,
		logging.FieldDays:   event.Requested.String(),
		"exchange":          p.exchangeName,
	}).Debug("published consumption message")

	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
