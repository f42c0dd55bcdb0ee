package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesselpdp/internal/model"
)

type received struct {
	body    []byte
	sig     string
	event   string
	deliver string
}

func receiver(t *testing.T, status func(n int) int) (*httptest.Server, func() []received) {
	t.Helper()
	var mu sync.Mutex
	var got []received
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, received{body, r.Header.Get(SignatureHeader), r.Header.Get(EventTypeHeader), r.Header.Get(DeliveryHeader)})
		n := len(got)
		mu.Unlock()
		w.WriteHeader(status(n))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []received {
		mu.Lock()
		defer mu.Unlock()
		return append([]received(nil), got...)
	}
}

func testWorker(p *Publisher, client *http.Client, attempts int) *Worker {
	w := NewWorker(p, "secret", attempts, nil)
	w.HTTP = client
	w.Backoff = func(int) time.Duration { return 0 }
	return w
}

func completed(instanceID string, cost float64) model.Event {
	return model.Event{
		Type:       model.EventEvaluationCompleted,
		InstanceID: instanceID,
		Evaluation: model.Evaluation{ID: "ev1", InstanceID: instanceID, Cost: cost, Feasible: true},
	}
}

func TestSignVerify(t *testing.T) {
	body := []byte(`{"id":"evt1"}`)
	sig := Sign("secret", body)
	assert.Regexp(t, `^sha256=[0-9a-f]{64}$`, sig)
	assert.True(t, Verify("secret", body, sig))
	assert.False(t, Verify("other", body, sig))
	assert.False(t, Verify("secret", []byte(`{}`), sig))
	assert.False(t, Verify("secret", body, sig[len(signaturePrefix):]))
	assert.False(t, Verify("secret", body, "sha256=zz"))
}

func TestWorkerDeliversSignedEvent(t *testing.T) {
	srv, got := receiver(t, func(int) int { return http.StatusNoContent })
	p := NewPublisher([]string{srv.URL})
	require.Equal(t, 1, p.Emit(completed("inst-1", 470)))

	testWorker(p, srv.Client(), 3).processOnce(context.Background())

	require.Len(t, got(), 1)
	r := got()[0]
	assert.True(t, Verify("secret", r.body, r.sig))
	assert.Equal(t, model.EventEvaluationCompleted, r.event)
	assert.NotEmpty(t, r.deliver)

	var pl payload
	require.NoError(t, json.Unmarshal(r.body, &pl))
	assert.Equal(t, "inst-1", pl.InstanceID)
	assert.Equal(t, model.EventEvaluationCompleted, pl.Type)
	assert.InDelta(t, 470, pl.Data.Cost, 1e-9)
	assert.Zero(t, p.Pending())
}

func TestWorkerRetriesThenSucceeds(t *testing.T) {
	srv, got := receiver(t, func(n int) int {
		if n < 3 {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	})
	p := NewPublisher([]string{srv.URL})
	p.Emit(completed("inst-1", 1))
	w := testWorker(p, srv.Client(), 5)

	for i := 0; i < 3; i++ {
		w.processOnce(context.Background())
	}
	rs := got()
	require.Len(t, rs, 3)
	assert.Equal(t, rs[0].deliver, rs[2].deliver, "retries keep the delivery id")
	assert.Zero(t, p.Pending())
}

func TestWorkerAbandonsAfterMaxAttempts(t *testing.T) {
	srv, got := receiver(t, func(int) int { return http.StatusBadGateway })
	p := NewPublisher([]string{srv.URL})
	p.Emit(completed("inst-1", 1))
	w := testWorker(p, srv.Client(), 2)

	w.processOnce(context.Background())
	assert.Equal(t, 1, p.Pending())
	w.processOnce(context.Background())
	assert.Zero(t, p.Pending())
	w.processOnce(context.Background())
	assert.Len(t, got(), 2)
}

func TestPublisherBoundsOutbox(t *testing.T) {
	p := NewPublisher([]string{"http://a.example", "http://b.example"})
	p.MaxPending = 3
	assert.Equal(t, 2, p.Emit(completed("i", 1)))
	assert.Equal(t, 1, p.Emit(completed("i", 2)))
	assert.Equal(t, 3, p.Pending())

	assert.Zero(t, NewPublisher(nil).Emit(completed("i", 1)))
}

func TestDueHonoursNextAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPublisher([]string{"http://a.example"})
	p.now = func() time.Time { return now }
	p.Emit(completed("i", 1))

	d := p.due(10)
	require.Len(t, d, 1)
	p.retry(d[0], time.Minute)
	assert.Empty(t, p.due(10))

	now = now.Add(time.Minute)
	assert.Len(t, p.due(10), 1)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, time.Second, nextBackoff(-1))
	assert.Equal(t, 8*time.Second, nextBackoff(3))
	assert.Equal(t, 1024*time.Second, nextBackoff(50))
}
