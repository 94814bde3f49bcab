package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
)

// DecoderFunc turns an envelope's data document into a typed payload.
type DecoderFunc func(data json.RawMessage) (any, error)

// JSONDecoder decodes data into a fresh *T.
func JSONDecoder[T any]() DecoderFunc {
	return func(data json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(data, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

type schema struct {
	event   enums.OutboxEventType
	version int
}

// DecoderRegistry maps an event type and envelope version to its decoder.
// Consumers only accept the versions registered here.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[schema]DecoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[schema]DecoderFunc{}}
}

// NewConsumerDecoders knows every payload the notification worker reads.
func NewConsumerDecoders() *DecoderRegistry {
	r := NewDecoderRegistry()
	r.Register(enums.EventNotificationRequested, 1, JSONDecoder[payloads.NotificationRequestedEvent]())
	return r
}

func (r *DecoderRegistry) Register(event enums.OutboxEventType, version int, decode DecoderFunc) {
	r.mu.Lock()
	r.decoders[schema{event, version}] = decode
	r.mu.Unlock()
}

func (r *DecoderRegistry) Decode(event enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	r.mu.RLock()
	decode, ok := r.decoders[schema{event, version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for %s v%d", event, version)
	}
	return decode(data)
}
