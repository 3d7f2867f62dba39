// Package consumer provides RabbitMQ consumer functionality for handling message queues
package consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/pkg/codec"
	"github.com/Koyo-os/survey-service/pkg/config"
	"github.com/Koyo-os/survey-service/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// EXCHANGE_TYPE defines the exchange type for RabbitMQ
	// "direct" means messages are routed to queues based on the exact match of routing keys
	EXCHANGE_TYPE = "direct"

	// Default retry settings
	DEFAULT_RECONNECT_DELAY = 5 * time.Second
)

// binding is one queue bound to an exchange under a routing key
type binding struct {
	exchange   string
	routingKey string
	queue      string
}

// Consumer represents a RabbitMQ consumer client
// It maintains connection, channel, and configuration details needed for message consumption
type Consumer struct {
	conn         *amqp.Connection // RabbitMQ connection instance
	channel      *amqp.Channel    // Channel for communication with RabbitMQ
	logger       *logger.Logger   // Logger instance for error and info logging
	cfg          *config.Config   // Configuration settings
	exchanges    map[string]bool  // Track declared exchanges
	bindings     []binding        // Track bindings to restore after reconnect
	mu           sync.RWMutex     // Mutex for thread-safe operations
	isConnected  bool             // Connection status flag
	reconnecting bool             // Reconnection status flag
	delay        time.Duration    // Pause between reconnect attempts
}

// Init creates and initializes a new Consumer instance
// Returns an error if the channel creation fails
func Init(cfg *config.Config, logger *logger.Logger, conn *amqp.Connection) (*Consumer, error) {
	if cfg == nil || logger == nil || conn == nil {
		return nil, fmt.Errorf("invalid parameters: cfg, logger, and conn cannot be nil")
	}

	consumer := &Consumer{
		conn:        conn,
		logger:      logger,
		cfg:         cfg,
		exchanges:   make(map[string]bool),
		isConnected: true,
		delay:       DEFAULT_RECONNECT_DELAY,
	}

	if err := consumer.initializeChannel(); err != nil {
		return nil, fmt.Errorf("failed to initialize channel: %w", err)
	}

	if err := consumer.declareExchange(cfg.Exchange.Request); err != nil {
		consumer.cleanup()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return consumer, nil
}

// SubscribeRequests binds the request queue to every request type the
// service handles
func (c *Consumer) SubscribeRequests() error {
	for _, routingKey := range []string{
		c.cfg.Reqs.SaveRequestType,
		c.cfg.Reqs.ApplyRequestType,
		c.cfg.Reqs.InstantiateRequestType,
	} {
		if err := c.Subscribe(c.cfg.Exchange.Request, routingKey, c.cfg.Queue.Request); err != nil {
			return err
		}
	}
	return nil
}

// initializeChannel creates a new channel and sets up basic configuration
func (c *Consumer) initializeChannel() error {
	channel, err := c.conn.Channel()
	if err != nil {
		c.logger.Error("failed to open channel", zap.Error(err))
		return err
	}

	c.channel = channel
	return nil
}

// declareExchange declares an exchange and tracks it
func (c *Consumer) declareExchange(exchangeName string) error {
	if err := c.channel.ExchangeDeclare(
		exchangeName,
		EXCHANGE_TYPE,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		c.logger.Error("failed to declare exchange",
			zap.String("exchange", exchangeName),
			zap.Error(err))
		return err
	}

	c.exchanges[exchangeName] = true

	return nil
}

// Subscribe sets up a queue and binds it to an exchange with the specified routing key
// This method handles both queue declaration and queue binding operations
func (c *Consumer) Subscribe(exchange, routingKey, queueName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected {
		return fmt.Errorf("consumer is not connected")
	}

	b := binding{exchange: exchange, routingKey: routingKey, queue: queueName}
	if err := c.bind(b); err != nil {
		return err
	}

	c.exchanges[exchange] = true
	c.bindings = append(c.bindings, b)

	return nil
}

func (c *Consumer) bind(b binding) error {
	// Declare the queue with specified parameters
	if _, err := c.channel.QueueDeclare(
		b.queue, // name of the queue
		true,    // durable: queue survives broker restart
		false,   // autoDelete: queue is deleted when last consumer unsubscribes
		false,   // exclusive: queue only accessible by connection that created it
		false,   // noWait: don't wait for server confirmation
		nil,     // args: additional arguments
	); err != nil {
		c.logger.Error("failed to declare queue",
			zap.String("queue", b.queue),
			zap.Error(err))
		return fmt.Errorf("failed to declare queue %s: %w", b.queue, err)
	}

	// Bind the queue to the exchange using the routing key
	if err := c.channel.QueueBind(
		b.queue,      // name of the queue to bind
		b.routingKey, // key used for routing messages
		b.exchange,   // name of the exchange to bind to
		false,        // noWait: wait for server confirmation
		nil,          // args: additional arguments
	); err != nil {
		c.logger.Error("failed to bind queue to exchange",
			zap.String("queue", b.queue),
			zap.String("exchange", b.exchange),
			zap.String("routing_key", b.routingKey),
			zap.Error(err))
		return fmt.Errorf("failed to bind queue %s to exchange %s: %w", b.queue, b.exchange, err)
	}

	return nil
}

// Close gracefully closes the consumer connection and channel
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isConnected = false

	var err error

	if c.channel != nil {
		if cerr := c.channel.Close(); cerr != nil {
			c.logger.Error("error closing channel", zap.Error(cerr))
			err = multierr.Append(err, fmt.Errorf("channel close error: %w", cerr))
		}
	}

	if c.conn != nil && !c.conn.IsClosed() {
		if cerr := c.conn.Close(); cerr != nil {
			c.logger.Error("error closing connection", zap.Error(cerr))
			err = multierr.Append(err, fmt.Errorf("connection close error: %w", cerr))
		}
	}

	return err
}

// IsHealthy checks if the consumer connection is healthy
func (c *Consumer) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}

// ConsumeMessages starts consuming messages from RabbitMQ until ctx is done.
// It reconnects automatically; decoded events are sent to outputChan
func (c *Consumer) ConsumeMessages(ctx context.Context, outputChan chan entity.Event) {
	if outputChan == nil {
		c.logger.Error("output channel cannot be nil")
		return
	}

	for ctx.Err() == nil {
		if !c.IsHealthy() {
			c.logger.Warn("connection is unhealthy, attempting to reconnect...")
			if err := c.handleReconnection(); err != nil {
				c.logger.Error("failed to reconnect", zap.Error(err))
				c.wait(ctx)
				continue
			}
		}

		if err := c.startConsuming(ctx, outputChan); err != nil {
			c.logger.Error("consuming stopped with error", zap.Error(err))
			c.wait(ctx)
		}
	}

	c.logger.Info("consumer stopped")
}

func (c *Consumer) wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.delay):
	}
}

// handleReconnection manages the reconnection process with proper synchronization
func (c *Consumer) handleReconnection() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reconnecting {
		return fmt.Errorf("reconnection already in progress")
	}

	c.reconnecting = true
	defer func() { c.reconnecting = false }()

	return c.reconnect()
}

// startConsuming handles the actual message consumption
func (c *Consumer) startConsuming(ctx context.Context, outputChan chan entity.Event) error {
	c.mu.RLock()
	channel := c.channel
	c.mu.RUnlock()

	msgs, err := channel.Consume(
		c.cfg.Queue.Request, // queue to consume from
		"",                  // consumer identifier
		true,                // auto-acknowledge messages
		false,               // exclusive consumer
		false,               // no-local flag
		false,               // no-wait flag
		nil,                 // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("successfully connected to RabbitMQ, waiting for messages...")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			if err := c.processMessage(msg, outputChan); err != nil {
				c.logger.Error("failed to process message", zap.Error(err))
				// Continue processing other messages even if one fails
			}
		}
	}
}

// processMessage handles individual message processing
func (c *Consumer) processMessage(msg amqp.Delivery, outputChan chan entity.Event) error {
	event := new(entity.Event)
	if err := codec.Unmarshal(msg.Body, event); err != nil {
		c.logger.Error("failed to unmarshal event",
			zap.Error(err),
			zap.ByteString("body", msg.Body))
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	c.logger.Debug("received new event",
		zap.String("event_id", event.ID),
		zap.String("routing_key", event.Type),
		zap.Time("timestamp", event.Timestamp))

	// Non-blocking send to output channel
	select {
	case outputChan <- *event:
		return nil
	default:
		c.logger.Warn("output channel is full, dropping message",
			zap.String("event_id", event.ID))
		return fmt.Errorf("output channel is full")
	}
}

// reconnect handles the reconnection logic when the RabbitMQ connection is lost
// It re-establishes the connection, recreates the channel, and redeclares all exchanges and bindings
func (c *Consumer) reconnect() error {
	c.cleanup()

	// Establish new connection
	conn, err := amqp.Dial(c.cfg.Urls.Rabbitmq)
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	c.conn = conn

	// Create new channel
	if err := c.initializeChannel(); err != nil {
		c.conn.Close()
		return err
	}

	for exchange := range c.exchanges {
		if err := c.declareExchange(exchange); err != nil {
			c.cleanup()
			return fmt.Errorf("failed to redeclare exchange %s: %w", exchange, err)
		}
	}

	for _, b := range c.bindings {
		if err := c.bind(b); err != nil {
			c.cleanup()
			return err
		}
	}

	c.isConnected = true
	c.logger.Info("successfully reconnected to RabbitMQ")
	return nil
}

// cleanup closes existing connections and channels
func (c *Consumer) cleanup() {
	c.isConnected = false

	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
