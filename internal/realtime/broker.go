// Package realtime pushes collection snapshots to subscribers after every
// ledger mutation.
package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	TopicCredits    = "credits"
	TopicMonitoring = "monitoring"
)

// Event carries a full snapshot of one collection
type Event struct {
	Topic     string    `json:"topic"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Broker fans events out to subscribers. Sends never block: a subscriber
// whose buffer is full misses the event and catches up on the next one.
type Broker struct {
	subscribers map[uint64]chan Event
	nextID      uint64
	buffer      int
	logger      *zap.Logger
	mu          sync.RWMutex
}

// NewBroker creates a broker with the given per-subscriber buffer
func NewBroker(buffer int, logger *zap.Logger) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		subscribers: make(map[uint64]chan Event),
		buffer:      buffer,
		logger:      logger,
	}
}

// Publish sends a snapshot to every subscriber.
func (b *Broker) Publish(topic string, data any) {
	event := Event{Topic: topic, Data: data, Timestamp: time.Now()}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Debug("Subscriber buffer full, dropping snapshot",
				zap.Uint64("subscriber", id), zap.String("topic", topic))
		}
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
