package logs

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charliek/respawn/internal/domain"
)

var subscriptionIDCounter uint64

// Subscription receives supervision events as they are recorded
type Subscription struct {
	id     string
	ch     chan domain.SupervisionEvent
	filter domain.EventFilter
	closed atomic.Bool
}

func newSubscription(filter domain.EventFilter, bufferSize int) (*Subscription, error) {
	if err := ValidateFilter(filter); err != nil {
		return nil, err
	}

	id := atomic.AddUint64(&subscriptionIDCounter, 1)
	return &Subscription{
		id:     fmt.Sprintf("sub-%d", id),
		ch:     make(chan domain.SupervisionEvent, bufferSize),
		filter: filter,
	}, nil
}

// ID returns the subscription ID
func (s *Subscription) ID() string {
	return s.id
}

// Channel returns the channel for receiving events
func (s *Subscription) Channel() <-chan domain.SupervisionEvent {
	return s.ch
}

// Send attempts to deliver an event without blocking.
// Returns false if the channel is full or closed.
func (s *Subscription) Send(event domain.SupervisionEvent) bool {
	if s.closed.Load() {
		return false
	}
	if !Matches(s.filter, event) {
		return true
	}

	select {
	case s.ch <- event:
		return true
	default:
		fmt.Fprintf(os.Stderr, "subscription %s: dropped %s event (channel full)\n", s.id, event.Phase)
		return false
	}
}

// Close closes the subscription
func (s *Subscription) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// SubscriptionManager manages multiple subscriptions
type SubscriptionManager struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	bufferSize    int
}

// NewSubscriptionManager creates a new subscription manager
func NewSubscriptionManager(bufferSize int) *SubscriptionManager {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &SubscriptionManager{
		subscriptions: make(map[string]*Subscription),
		bufferSize:    bufferSize,
	}
}

// Subscribe creates a new subscription
func (m *SubscriptionManager) Subscribe(filter domain.EventFilter) (string, <-chan domain.SupervisionEvent, error) {
	sub, err := newSubscription(filter, m.bufferSize)
	if err != nil {
		return "", nil, err
	}

	m.mu.Lock()
	m.subscriptions[sub.id] = sub
	m.mu.Unlock()

	return sub.id, sub.ch, nil
}

// Unsubscribe removes a subscription
func (m *SubscriptionManager) Unsubscribe(id string) {
	m.mu.Lock()
	sub, ok := m.subscriptions[id]
	if ok {
		delete(m.subscriptions, id)
	}
	m.mu.Unlock()

	if ok {
		sub.Close()
	}
}

// Broadcast sends an event to all subscribers
func (m *SubscriptionManager) Broadcast(event domain.SupervisionEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscriptions {
		sub.Send(event)
	}
}

// Count returns the number of active subscriptions
func (m *SubscriptionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes all subscriptions
func (m *SubscriptionManager) Close() {
	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.subscriptions = make(map[string]*Subscription)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}
