// Package mq moves notification events between the API server and its
// delivery workers over a configurable broker backend.
package mq

import (
	"context"
	"fmt"

	"github.com/devfolio/apiserver/config"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a delivered message. A non-nil error nacks the message
// so the broker redelivers it.
type Handler func(ctx context.Context, msg Message) error

// Client is the operation set both broker backends implement.
type Client interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ fronts a broker client for the event publisher and the delivery worker.
type MQ struct {
	client Client
}

// New wraps an already-connected client.
func New(client Client) *MQ {
	return &MQ{client: client}
}

// Open connects the backend named in config. Callers decide what a blank
// backend means; Open rejects it.
func Open(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	switch cfg.Backend {
	case "rabbitmq":
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return New(client), nil
	case "pubsub":
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return New(client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Publish sends a message to the named channel.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.client.Publish(ctx, channel, data, attrs)
}

// Subscribe consumes messages from the named channel, blocking until the
// context is cancelled.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.client.Subscribe(ctx, channel, handler)
}

// Close closes the underlying client.
func (m *MQ) Close() error {
	return m.client.Close()
}
