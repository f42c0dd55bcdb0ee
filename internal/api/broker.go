package api

import (
	"sync"

	"vesselpdp/internal/model"
)

// EventBroker fans evaluation events out to stream subscribers of an
// instance.
type EventBroker interface {
	Subscribe(instanceID string) chan model.Event
	Unsubscribe(instanceID string, ch chan model.Event)
	Publish(instanceID string, evt model.Event)
}

// Broker is the in-process EventBroker. Slow subscribers drop events
// rather than block publishers.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan model.Event]struct{} // instanceId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan model.Event]struct{}{}}
}

func (b *Broker) Subscribe(instanceID string) chan model.Event {
	ch := make(chan model.Event, 8)
	b.mu.Lock()
	if b.subs[instanceID] == nil {
		b.subs[instanceID] = map[chan model.Event]struct{}{}
	}
	b.subs[instanceID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(instanceID string, ch chan model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[instanceID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, instanceID)
	}
	close(ch)
}

func (b *Broker) Publish(instanceID string, evt model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[instanceID] {
		select {
		case ch <- evt:
		default:
		}
	}
}
