// Package webhooks pushes evaluation events to configured HTTP receivers
// with signed bodies and retries.
package webhooks

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"vesselpdp/internal/metrics"
	"vesselpdp/internal/model"
)

// DefaultMaxPending bounds the outbox of a Publisher.
const DefaultMaxPending = 1000

// Delivery is one pending POST of an event to a receiver.
type Delivery struct {
	ID        string
	EventType string
	URL       string
	Payload   []byte
	Attempts  int
	NextAt    time.Time
}

// Publisher holds the in-memory outbox drained by a Worker.
type Publisher struct {
	URLs       []string
	MaxPending int

	mu      sync.Mutex
	pending []Delivery
	now     func() time.Time
}

func NewPublisher(urls []string) *Publisher {
	return &Publisher{URLs: urls, MaxPending: DefaultMaxPending, now: time.Now}
}

type payload struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	InstanceID string           `json:"instanceId"`
	Timestamp  string           `json:"ts"`
	Data       model.Evaluation `json:"data"`
}

// Emit queues evt for every receiver and returns how many deliveries were
// queued. Deliveries beyond MaxPending are dropped.
func (p *Publisher) Emit(evt model.Event) int {
	if len(p.URLs) == 0 {
		return 0
	}
	now := p.now()
	body, err := json.Marshal(payload{
		ID:         "evt_" + uuid.NewString(),
		Type:       evt.Type,
		InstanceID: evt.InstanceID,
		Timestamp:  now.UTC().Format(time.RFC3339Nano),
		Data:       evt.Evaluation,
	})
	if err != nil {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	queued := 0
	for _, u := range p.URLs {
		if p.MaxPending > 0 && len(p.pending) >= p.MaxPending {
			metrics.WebhookDeliveries.WithLabelValues("dropped").Inc()
			continue
		}
		p.pending = append(p.pending, Delivery{
			ID:        uuid.NewString(),
			EventType: evt.Type,
			URL:       u,
			Payload:   body,
			NextAt:    now,
		})
		queued++
	}
	return queued
}

// Pending is the number of deliveries waiting in the outbox.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// due removes and returns up to limit deliveries whose NextAt has passed.
func (p *Publisher) due(limit int) []Delivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	var out []Delivery
	keep := p.pending[:0]
	for _, d := range p.pending {
		if len(out) < limit && !d.NextAt.After(now) {
			out = append(out, d)
			continue
		}
		keep = append(keep, d)
	}
	p.pending = keep
	return out
}

func (p *Publisher) retry(d Delivery, after time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d.NextAt = p.now().Add(after)
	p.pending = append(p.pending, d)
}
