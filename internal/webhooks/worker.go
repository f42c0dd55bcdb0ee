package webhooks

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"vesselpdp/internal/metrics"
)

const batchSize = 50

// Worker drains a Publisher's outbox, retrying failed deliveries with
// exponential backoff until MaxAttempts is reached.
type Worker struct {
	Publisher   *Publisher
	HTTP        *http.Client
	Secret      string
	MaxAttempts int
	Interval    time.Duration
	Backoff     func(attempts int) time.Duration
	Log         *slog.Logger
}

func NewWorker(p *Publisher, secret string, maxAttempts int, logger *slog.Logger) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		Publisher:   p,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		Secret:      secret,
		MaxAttempts: maxAttempts,
		Interval:    time.Second,
		Backoff:     nextBackoff,
		Log:         logger,
	}
}

// Run processes the outbox every Interval until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOnce(ctx)
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) {
	for _, d := range w.Publisher.due(batchSize) {
		if ctx.Err() != nil {
			w.Publisher.retry(d, 0)
			continue
		}
		code, err := w.deliver(ctx, d)
		if err == nil && code >= 200 && code < 300 {
			metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
			continue
		}
		d.Attempts++
		if d.Attempts >= w.MaxAttempts {
			metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
			w.Log.Warn("webhook delivery abandoned", "delivery", d.ID, "url", d.URL,
				"attempts", d.Attempts, "status", code, "err", err)
			continue
		}
		metrics.WebhookDeliveries.WithLabelValues("retry").Inc()
		w.Log.Debug("webhook delivery failed", "delivery", d.ID, "url", d.URL,
			"attempts", d.Attempts, "status", code, "err", err)
		w.Publisher.retry(d, w.Backoff(d.Attempts))
	}
}

func (w *Worker) deliver(ctx context.Context, d Delivery) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventTypeHeader, d.EventType)
	req.Header.Set(DeliveryHeader, d.ID)
	if w.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(w.Secret, d.Payload))
	}
	resp, err := w.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
