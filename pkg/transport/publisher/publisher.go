// Package publisher emits survey events to the output exchange
package publisher

import (
	"sync"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/pkg/codec"
	"github.com/Koyo-os/survey-service/pkg/config"
	"github.com/Koyo-os/survey-service/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// OUTPUT_EXCHANGE_TYPE lets subscribers bind to "survey.*" style patterns
const OUTPUT_EXCHANGE_TYPE = "topic"

type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	logger   *logger.Logger
	exchange string
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
}

func Init(cfg *config.Config, logger *logger.Logger, conn *amqp.Connection) (*Publisher, error) {
	channel, err := conn.Channel()
	if err != nil {
		logger.Error("error opening channel", zap.Error(err))
		conn.Close()
		return nil, err
	}

	if err := channel.ExchangeDeclare(
		cfg.Exchange.Output,  // name
		OUTPUT_EXCHANGE_TYPE, // kind
		true,                 // durable
		false,                // auto-delete
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	); err != nil {
		logger.Error("error declaring output exchange",
			zap.String("exchange", cfg.Exchange.Output),
			zap.Error(err))
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		channel:  channel,
		logger:   logger,
		exchange: cfg.Exchange.Output,
	}, nil
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.logger.Error("error closing channel", zap.Error(err))
	}
	return p.conn.Close()
}

func (p *Publisher) IsHealthy() bool {
	return !p.conn.IsClosed()
}

// Publish wraps payload in an Event and sends it with routingKey
func (p *Publisher) Publish(payload any, routingKey string) error {
	eventJson, err := Encode(payload, routingKey)
	if err != nil {
		p.logger.Error("error encode event for publish",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
		return err
	}

	p.mu.Lock()
	err = p.channel.Publish(
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         eventJson,
			Timestamp:    time.Now(),
		},
	)
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("error publishing event",
			zap.String("routing_key", routingKey),
			zap.Error(err))
		return err
	}

	p.logger.Debug("successfully published event",
		zap.String("routing_key", routingKey),
	)

	return nil
}

// Encode builds the wire form of an event carrying payload
func Encode(payload any, routingKey string) ([]byte, error) {
	payloadJson, err := codec.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return codec.Marshal(entity.NewEvent(routingKey, payloadJson))
}
