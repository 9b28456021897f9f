// Package eventbus wraps asynq as the event transport for the booking
// ingress and its result events (spec.md §4.8): a thin envelope format plus
// a publisher and a consumer registrar built on asynq.Client/asynq.ServeMux.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Envelope is the wire shape every event on the bus carries: an AWS
// EventBridge-style {source, detail-type, detail} triple.
type Envelope struct {
	Source     string          `json:"source"`
	DetailType string          `json:"detail-type"`
	Detail     json.RawMessage `json:"detail"`
}

// Publisher emits result events onto the bus.
type Publisher struct {
	client *asynq.Client
}

// NewPublisher returns a Publisher backed by an asynq client connected to
// redisAddr.
func NewPublisher(redisAddr string) *Publisher {
	return &Publisher{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// Close releases the underlying asynq client's connections.
func (p *Publisher) Close() error {
	return p.client.Close()
}

// Publish enqueues detail under detailType, wrapped in an Envelope whose
// source identifies this service.
func (p *Publisher) Publish(ctx context.Context, source, detailType string, detail any) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("eventbus: marshal detail: %w", err)
	}
	envelope := Envelope{Source: source, DetailType: detailType, Detail: payload}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("eventbus: marshal envelope: %w", err)
	}
	task := asynq.NewTask(detailType, body)
	_, err = p.client.EnqueueContext(ctx, task)
	return err
}

// Consumer wraps an asynq.ServeMux so handler packages can register
// detail-type-keyed callbacks without importing asynq directly.
type Consumer struct {
	mux *asynq.ServeMux
}

// NewConsumer returns a Consumer wrapping a fresh asynq.ServeMux.
func NewConsumer() *Consumer {
	return &Consumer{mux: asynq.NewServeMux()}
}

// HandleFunc registers fn for detailType. fn receives the decoded Envelope
// and must not propagate errors the event bus would treat as a request for
// redelivery; see spec.md §4.8 and §5 on absorbing exceptions.
func (c *Consumer) HandleFunc(detailType string, fn func(ctx context.Context, env Envelope) error) {
	c.mux.HandleFunc(detailType, func(ctx context.Context, t *asynq.Task) error {
		var env Envelope
		if err := json.Unmarshal(t.Payload(), &env); err != nil {
			return fmt.Errorf("eventbus: unmarshal envelope: %w", err)
		}
		return fn(ctx, env)
	})
}

// Mux returns the underlying asynq.ServeMux for wiring into an asynq.Server.
func (c *Consumer) Mux() *asynq.ServeMux {
	return c.mux
}

// NewServer returns an asynq.Server connected to redisAddr with the given
// concurrency.
func NewServer(redisAddr string, concurrency int) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{Concurrency: concurrency},
	)
}
