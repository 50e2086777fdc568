package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Named queues per worker class, matching the task names in spec.md §6.
const (
	QueueRuleEngine    = "rule_engine"
	QueueAnalytics     = "analytics"
	QueueReporting     = "reporting"
	QueueNotifications = "notifications"

	TaskEvaluateRules    = "evaluate_rules"
	TaskRunAnalyticsJob  = "run_analytics_job"
	TaskGenerateReport   = "generate_report"
	TaskSendNotifications = "send_notifications"
)

// Task is the JSON body every job carries, per spec.md §4.7:
// {task_name, args, kwargs}.
type Task struct {
	TaskName string          `json:"task_name"`
	Args     json.RawMessage `json:"args"`
	Kwargs   json.RawMessage `json:"kwargs,omitempty"`
}

// Client wraps a durable AMQP connection/channel pair. It is a process-wide
// singleton per DESIGN NOTES §9.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

var client *Client

// Connect dials the broker, opens a channel, declares the named queues
// durable, and sets prefetch=1 so every consumer on this channel gets
// single-inflight semantics (task_acks_late + prefetch_multiplier=1 from
// spec.md §4.7).
func Connect(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	for _, name := range []string{QueueRuleEngine, QueueAnalytics, QueueReporting, QueueNotifications} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", name, err)
		}
	}

	client = &Client{conn: conn, ch: ch}
	return client, nil
}

// Get returns the process-wide queue client.
func Get() *Client {
	return client
}

// Close shuts down the channel and connection.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Publish enqueues a task onto a named queue as a persistent message, so it
// survives a broker restart.
func (c *Client) Publish(ctx context.Context, queueName, taskName string, args interface{}) error {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal task args: %w", err)
	}
	body, err := json.Marshal(Task{TaskName: taskName, Args: argsJSON})
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	return c.ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// HandlerFunc processes one task body. Returning an error causes the
// delivery to be nacked and requeued (task_acks_late + reject_on_worker_lost
// semantics from spec.md §4.7); retry/backoff policy is owned by the
// caller, not by redelivery count.
type HandlerFunc func(ctx context.Context, task Task) error

// Consume runs handler against every delivery on queueName until ctx is
// cancelled. Acknowledgement is manual and late: the message is only acked
// after handler returns nil, so a worker crash mid-task leaves the message
// unacked for redelivery.
func (c *Client) Consume(ctx context.Context, queueName string, handler HandlerFunc) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", queueName)
			}
			var task Task
			if err := json.Unmarshal(d.Body, &task); err != nil {
				log.Error().Err(err).Str("queue", queueName).Msg("dropping malformed task body")
				d.Nack(false, false) // not requeued: the body will never parse
				continue
			}

			if err := handler(ctx, task); err != nil {
				log.Error().Err(err).Str("queue", queueName).Str("task", task.TaskName).Msg("task handler failed, requeuing")
				d.Nack(false, true)
				continue
			}
			d.Ack(false)
		}
	}
}

// WithBackoff retries fn up to maxAttempts times with exponential backoff
// (2^attempt seconds), matching the job-level retry policy in spec.md §4.2.
func WithBackoff(ctx context.Context, maxAttempts int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}
