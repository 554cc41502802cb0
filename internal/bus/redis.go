package bus

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Envelope is what crosses the Redis pub/sub channel between processes: a
// target group or, for a personalized delivery like a player's own game_state
// snapshot, a single connection id, plus the message to deliver locally.
type Envelope struct {
	Group   string          `json:"group,omitempty"`
	Channel string          `json:"channel,omitempty"`
	Message json.RawMessage `json:"message"`
}

const crossNodeChannel = "pong_room_events"

// RedisBus fans a Hub's GroupSend calls out across server processes: a
// publish on one node is re-delivered to every node's local Hub, generalizing
// the single hardcoded idle_events/game_events subscriber in
// internal/ws/redis.go into an arbitrary-group relay.
type RedisBus struct {
	rdb *redis.Client
	hub *Hub
}

func NewRedisBus(rdb *redis.Client, hub *Hub) *RedisBus {
	return &RedisBus{rdb: rdb, hub: hub}
}

// Publish fans a message out to a group on every node, including this one
// (the subscriber loop below delivers locally too, so callers should use
// Publish instead of hub.GroupSend directly once a RedisBus is wired in).
func (b *RedisBus) Publish(ctx context.Context, group string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	env := Envelope{Group: group, Message: data}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, crossNodeChannel, payload).Err()
}

// PublishToChannel fans a message out to one connection id on every node, the
// Channel-targeted counterpart to Publish's group broadcast — used for
// personalized deliveries (a player's own game_state snapshot, a
// waiting_for_opponent update) that must not reach the other player's socket.
func (b *RedisBus) PublishToChannel(ctx context.Context, connID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	env := Envelope{Channel: connID, Message: data}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, crossNodeChannel, payload).Err()
}

// Subscribe starts the background relay goroutine; call once at startup.
func (b *RedisBus) Subscribe(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, crossNodeChannel)
	ch := pubsub.Channel()
	go func() {
		log.Printf("[BUS] redis relay subscribed to %s", crossNodeChannel)
		for msg := range ch {
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("[BUS] invalid envelope: %v", err)
				continue
			}
			if env.Channel != "" {
				b.hub.SendToChannel(env.Channel, json.RawMessage(env.Message))
				continue
			}
			b.hub.GroupSend(env.Group, json.RawMessage(env.Message))
		}
	}()
}
