// Package events implements the per-request event bus: a process-wide map
// from request id to a broadcast channel of ChatEvent, plus the
// EventSender convenience wrapper emitters use to publish typed events
// without reaching into the bus directly.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/artificer-ai/artificer/internal/models"
)

// ChannelBuffer is the buffer size a subscriber channel is created with;
// a subscriber more than ChannelBuffer events behind starts losing the
// oldest ones.
const ChannelBuffer = 128

// Bus is the process-wide request-id -> subscriber map. Build one with New;
// the zero value has no channel map and cannot be used.
type Bus struct {
	mu       sync.Mutex
	channels map[string]chan models.ChatEvent
	logger   *slog.Logger
}

// New builds an empty Bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{channels: make(map[string]chan models.ChatEvent), logger: logger}
}

// CreateChannel inserts a new subscriber channel for id, replacing any
// existing one (callers never do this in practice; one channel per
// request id, created once by the transport).
func (b *Bus) CreateChannel(id string) <-chan models.ChatEvent {
	ch := make(chan models.ChatEvent, ChannelBuffer)
	b.mu.Lock()
	b.channels[id] = ch
	b.mu.Unlock()
	return ch
}

// SendEvent delivers event to id's subscriber, if any. Delivery never
// blocks: if the subscriber's buffer is full, the oldest buffered event is
// dropped to make room, so a slow subscriber can never stall the worker
// emitting events.
func (b *Bus) SendEvent(id string, event models.ChatEvent) {
	b.mu.Lock()
	ch, ok := b.channels[id]
	b.mu.Unlock()
	if !ok {
		return
	}

	for {
		select {
		case ch <- event:
			return
		default:
		}
		select {
		case <-ch:
			b.logger.Debug("event bus: dropped oldest event under subscriber lag", "request_id", id)
		default:
			return
		}
	}
}

// CleanupChannel removes id's subscriber channel and closes it so any
// in-flight receiver terminates naturally.
func (b *Bus) CleanupChannel(id string) {
	b.mu.Lock()
	ch, ok := b.channels[id]
	if ok {
		delete(b.channels, id)
	}
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

var sequence atomic.Uint64

func nextSequence() uint64 { return sequence.Add(1) }
