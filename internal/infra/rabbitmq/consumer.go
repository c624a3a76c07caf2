package rabbitmq

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, body []byte) error

// Consumer runs a fixed pool of workers over the analysis queue. Each
// delivery dispatches one independent pipeline run; failed deliveries are
// requeued with exponential backoff.
type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	workerCount int
	baseDelay   time.Duration
	handler     MessageHandler
	logger      *zap.Logger
	wg          sync.WaitGroup
}

type ConsumerConfig struct {
	URL         string
	Queue       string
	Exchange    string
	DLQ         string
	StatusQueue string
	Prefetch    int
	WorkerCount int
	BaseDelayMs int
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{cfg.Queue, cfg.DLQ, cfg.StatusQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	if err := ch.QueueBind(cfg.Queue, cfg.Queue, cfg.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind analysis queue: %w", err)
	}
	if err := ch.QueueBind(cfg.StatusQueue, cfg.StatusQueue, cfg.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind status queue: %w", err)
	}

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       cfg.Queue,
		workerCount: cfg.WorkerCount,
		baseDelay:   time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		handler:     handler,
		logger:      logger,
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("starting analysis worker pool",
		zap.Int("workers", c.workerCount),
		zap.String("queue", c.queue),
	)

	for i := 0; i < c.workerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries)
	}

	<-ctx.Done()
	c.logger.Info("context cancelled, waiting for running pipelines to finish")
	c.wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			c.processDelivery(ctx, d, log)
		}
	}
}

func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	err := c.handler(ctx, d.Body)
	if err != nil {
		log.Warn("job processing failed, requeueing",
			zap.Error(err),
			zap.Uint64("delivery_tag", d.DeliveryTag),
		)

		attempt := c.redeliveryCount(d)
		delay := c.backoff(attempt)
		log.Info("backoff before requeue", zap.Duration("delay", delay), zap.Int("attempt", attempt))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			_ = d.Nack(false, false)
			return
		}

		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
}

func (c *Consumer) redeliveryCount(d amqp.Delivery) int {
	if d.Headers == nil {
		return 1
	}
	if xDeath, ok := d.Headers["x-death"]; ok {
		if deaths, ok := xDeath.([]interface{}); ok && len(deaths) > 0 {
			return len(deaths)
		}
	}
	return 1
}

func (c *Consumer) backoff(attempt int) time.Duration {
	delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > 60*time.Second {
		delay = 60 * time.Second
	}
	return delay
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
