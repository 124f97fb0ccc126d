// internal/events/bus.go
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Signal string

const (
	// NavigateToInsights asks the UI to open the insights screen.
	NavigateToInsights Signal = "navigate_to_insights"
	// NewAIDataAdded fires after an AI-analyzed meal is persisted.
	NewAIDataAdded Signal = "new_ai_data_added"
)

type Event struct {
	Signal Signal    `json:"signal"`
	At     time.Time `json:"at"`
}

const subscriberBuffer = 16

// Bus fans signals out to subscribers. Publish never blocks; a subscriber
// with a full buffer misses the event.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
	now    func() time.Time
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]chan Event),
		now:  time.Now,
	}
}

// Subscribe returns a receive channel and a cancel func that closes it.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Bus) Publish(sig Signal) {
	ev := Event{Signal: sig, At: b.now().UTC()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Warn().Int("subscriber", id).Str("signal", string(sig)).Msg("subscriber buffer full, dropping event")
		}
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
