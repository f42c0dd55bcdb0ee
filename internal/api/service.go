package api

import (
	"context"
	"fmt"
	"time"

	"vesselpdp/internal/cache"
	"vesselpdp/internal/metrics"
	"vesselpdp/internal/model"
	"vesselpdp/internal/opt"
	"vesselpdp/internal/problem"
)

// createInstance parses src and stores it. Parse failures are returned
// unwrapped so callers can match problem.ErrMalformed.
func (s *Server) createInstance(ctx context.Context, name string, src []byte) (model.Instance, *problem.Instance, error) {
	pi, err := problem.ParseBytes(src)
	if err != nil {
		metrics.InstancesLoaded.WithLabelValues("malformed").Inc()
		return model.Instance{}, nil, err
	}
	metrics.InstancesLoaded.WithLabelValues("ok").Inc()
	rec, err := s.Store.SaveInstance(ctx, model.Instance{
		Name:     name,
		Nodes:    pi.Nodes,
		Vehicles: pi.NumVehicles(),
		Calls:    pi.NumCalls(),
		Checksum: problem.Checksum(src),
		Source:   string(src),
	})
	if err != nil {
		return model.Instance{}, nil, err
	}
	s.mu.Lock()
	s.parsed[rec.ID] = pi
	s.mu.Unlock()
	return rec, pi, nil
}

// instance loads a stored instance and its parsed tables, parsing the
// stored source at most once per process.
func (s *Server) instance(ctx context.Context, id string) (model.Instance, *problem.Instance, error) {
	rec, err := s.Store.GetInstance(ctx, id)
	if err != nil {
		return model.Instance{}, nil, err
	}
	s.mu.Lock()
	pi, ok := s.parsed[id]
	s.mu.Unlock()
	if ok {
		return rec, pi, nil
	}
	pi, err = problem.ParseBytes([]byte(rec.Source))
	if err != nil {
		return model.Instance{}, nil, fmt.Errorf("stored instance %s: %w", id, err)
	}
	s.mu.Lock()
	s.parsed[id] = pi
	s.mu.Unlock()
	return rec, pi, nil
}

func (s *Server) forget(id string) {
	s.mu.Lock()
	delete(s.parsed, id)
	s.mu.Unlock()
}

// evaluate scores sol against the instance, consulting the cache first, then
// stores the evaluation and publishes it to stream subscribers. Structural
// mismatches come back as opt.ErrDimension.
func (s *Server) evaluate(ctx context.Context, rec model.Instance, pi *problem.Instance, sol opt.Solution, strategy string) (model.Evaluation, error) {
	key := cache.Key(rec.Checksum, sol)
	res, hit, err := s.Cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		s.Log.Warn("cache lookup failed", "err", err)
	case hit:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	if !hit {
		start := time.Now()
		res, err = opt.Evaluate(pi, sol)
		if err != nil {
			metrics.Evaluations.WithLabelValues("invalid").Inc()
			return model.Evaluation{}, err
		}
		metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
		if err := s.Cache.Set(ctx, key, res); err != nil {
			s.Log.Warn("cache store failed", "err", err)
		}
	}
	outcome := "infeasible"
	if res.Feasible {
		outcome = "feasible"
	}
	metrics.Evaluations.WithLabelValues(outcome).Inc()

	ev := model.NewEvaluation(rec.ID, sol, res)
	ev.Strategy = strategy
	ev, err = s.Store.SaveEvaluation(ctx, ev)
	if err != nil {
		return model.Evaluation{}, err
	}
	ev.Cached = hit
	s.Log.Debug("evaluated solution", "instance", rec.ID, "evaluation", ev.ID,
		"feasible", ev.Feasible, "penalty", ev.Penalty, "cost", ev.Cost, "cached", hit)
	evt := model.Event{Type: model.EventEvaluationCompleted, InstanceID: rec.ID, Evaluation: ev}
	s.Broker.Publish(rec.ID, evt)
	if s.Hooks != nil {
		s.Hooks.Emit(evt)
	}
	return ev, nil
}
