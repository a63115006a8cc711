package common

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	EventBusChannel = "searchmigrate:events"
)

type EventType string

const (
	EventMigrationStarted EventType = "migration.started"
	EventMigrationFailed  EventType = "migration.failed"
	EventAliasCutover     EventType = "alias.cutover"
	EventIndexRetired     EventType = "index.retired"
)

type Event struct {
	Type EventType      `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// EventBus publishes migration lifecycle events on a Redis channel so readers of
// the alias can react to a cutover. Local handlers see every emitted event;
// Start delivers events published by other processes.
type EventBus struct {
	rdb      *RedisClient
	channel  string
	handlers map[EventType][]func(Event)
	mu       sync.RWMutex
}

func NewEventBus(rdb *RedisClient) *EventBus {
	return &EventBus{
		rdb:      rdb,
		channel:  EventBusChannel,
		handlers: make(map[EventType][]func(Event)),
	}
}

func (eb *EventBus) On(t EventType, fn func(Event)) {
	eb.mu.Lock()
	eb.handlers[t] = append(eb.handlers[t], fn)
	eb.mu.Unlock()
}

// Emit hands e to local handlers, then publishes it when Redis is configured.
// It never fails the caller; a lost event is logged.
func (eb *EventBus) Emit(ctx context.Context, e Event) {
	eb.dispatch(e)
	if eb.rdb == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		log.Warn().Err(err).Str("type", string(e.Type)).Msg("failed to encode event")
		return
	}
	if err := eb.rdb.Publish(ctx, eb.channel, data).Err(); err != nil {
		log.Warn().Err(err).Str("type", string(e.Type)).Msg("failed to publish event")
	}
}

func (eb *EventBus) dispatch(e Event) {
	eb.mu.RLock()
	handlers := eb.handlers[e.Type]
	eb.mu.RUnlock()
	for _, fn := range handlers {
		fn(e)
	}
}

// Start delivers events from the channel to local handlers until ctx is done.
// It returns at once without Redis.
func (eb *EventBus) Start(ctx context.Context) {
	if eb.rdb == nil {
		return
	}
	log.Info().Str("channel", eb.channel).Msg("eventbus started")

	for ctx.Err() == nil {
		eb.recv(ctx)
	}
}

func (eb *EventBus) recv(ctx context.Context) {
	sub := eb.rdb.Subscribe(ctx, eb.channel)
	defer sub.Close()

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var e Event
			if json.Unmarshal([]byte(msg.Payload), &e) == nil {
				eb.dispatch(e)
			}
		}
	}
}
