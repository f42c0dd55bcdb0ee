package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vesselpdp/internal/model"
)

// Memory is a simple in-memory store used when no database is configured.
type Memory struct {
	mu        sync.Mutex
	instances map[string]model.Instance   // id -> instance
	order     []string                    // sorted instance ids
	evals     map[string]model.Evaluation // id -> evaluation
	byInst    map[string][]string         // instance id -> sorted evaluation ids
}

func NewMemory() *Memory {
	return &Memory{
		instances: map[string]model.Instance{},
		evals:     map[string]model.Evaluation{},
		byInst:    map[string][]string{},
	}
}

func (m *Memory) SaveInstance(ctx context.Context, in model.Instance) (model.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	if _, ok := m.instances[in.ID]; !ok {
		m.order = insertSorted(m.order, in.ID)
	}
	m.instances[in.ID] = in
	return in, nil
}

func (m *Memory) GetInstance(ctx context.Context, id string) (model.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.instances[id]
	if !ok {
		return model.Instance{}, ErrNotFound
	}
	return in, nil
}

func (m *Memory) ListInstances(ctx context.Context, cursor string, limit int) ([]model.Instance, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, next := page(m.order, cursor, clampLimit(limit))
	out := make([]model.Instance, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.instances[id])
	}
	return out, next, nil
}

func (m *Memory) DeleteInstance(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[id]; !ok {
		return ErrNotFound
	}
	delete(m.instances, id)
	if i, ok := slices.BinarySearch(m.order, id); ok {
		m.order = slices.Delete(m.order, i, i+1)
	}
	for _, eid := range m.byInst[id] {
		delete(m.evals, eid)
	}
	delete(m.byInst, id)
	return nil
}

func (m *Memory) SaveEvaluation(ctx context.Context, ev model.Evaluation) (model.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[ev.InstanceID]; !ok {
		return model.Evaluation{}, ErrNotFound
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if _, ok := m.evals[ev.ID]; !ok {
		m.byInst[ev.InstanceID] = insertSorted(m.byInst[ev.InstanceID], ev.ID)
	}
	m.evals[ev.ID] = ev
	return ev, nil
}

func (m *Memory) GetEvaluation(ctx context.Context, id string) (model.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.evals[id]
	if !ok {
		return model.Evaluation{}, ErrNotFound
	}
	return ev, nil
}

func (m *Memory) ListEvaluations(ctx context.Context, instanceID, cursor string, limit int) ([]model.Evaluation, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, next := page(m.byInst[instanceID], cursor, clampLimit(limit))
	out := make([]model.Evaluation, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.evals[id])
	}
	return out, next, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
func (m *Memory) Close() error                   { return nil }

func insertSorted(ids []string, id string) []string {
	i, _ := slices.BinarySearch(ids, id)
	return slices.Insert(ids, i, id)
}

// page returns up to limit of the sorted ids greater than cursor and the
// cursor of the next page, empty on the last one. Like the SQL stores it
// seeks by value, so a cursor whose record was deleted still resumes in place.
func page(ids []string, cursor string, limit int) ([]string, string) {
	start := 0
	if cursor != "" {
		start = sort.Search(len(ids), func(i int) bool { return ids[i] > cursor })
	}
	end := start + limit
	if end >= len(ids) {
		return ids[start:], ""
	}
	return ids[start:end], ids[end-1]
}
