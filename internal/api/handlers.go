package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vesselpdp/internal/model"
	"vesselpdp/internal/opt"
	"vesselpdp/internal/problem"
	"vesselpdp/internal/store"
)

// InstancesHandler handles POST/GET /v1/instances
func (s *Server) InstancesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxInstanceBytes)
		var req model.InstanceIn
		if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
			b, err := io.ReadAll(r.Body)
			if err != nil {
				writeBodyProblem(w, r, "Invalid body", err)
				return
			}
			req = model.InstanceIn{Name: r.URL.Query().Get("name"), Source: string(b)}
		} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBodyProblem(w, r, "Invalid JSON", err)
			return
		}
		if err := validateInstanceIn(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid instance request", err.Error(), r.URL.Path)
			return
		}
		rec, pi, err := s.createInstance(r.Context(), req.Name, []byte(req.Source))
		if errors.Is(err, problem.ErrMalformed) {
			writeProblem(w, http.StatusBadRequest, "Malformed instance", err.Error(), r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create instance failed", err.Error(), r.URL.Path)
			return
		}
		s.Log.Info("instance loaded", "instance", rec.ID, "nodes", rec.Nodes, "vehicles", rec.Vehicles, "calls", rec.Calls)
		writeJSON(w, http.StatusCreated, detail(rec, pi))
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListInstances(r.Context(), cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List instances failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func detail(rec model.Instance, pi *problem.Instance) model.InstanceDetail {
	return model.InstanceDetail{
		Instance:      rec,
		Compatibility: pi.CompatibilityTable(),
		Capacities:    pi.Capacities(),
	}
}

// InstanceByIDHandler handles GET/DELETE /v1/instances/{id}, POST
// /v1/instances/{id}/seed and GET /v1/instances/{id}/events/stream
func (s *Server) InstanceByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.TrimPrefix(path, "/v1/instances/")
	if rest == path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	id := parts[0]
	switch {
	case len(parts) == 1:
		s.instanceResource(w, r, id)
	case len(parts) == 2 && parts[1] == "seed":
		s.seed(w, r, id)
	case len(parts) == 3 && parts[1] == "events" && parts[2] == "stream":
		s.stream(w, r, id)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
	}
}

func (s *Server) instanceResource(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		rec, pi, err := s.instance(r.Context(), id)
		if err != nil {
			s.storeProblem(w, r, "Get instance failed", err)
			return
		}
		writeJSON(w, http.StatusOK, detail(rec, pi))
	case http.MethodDelete:
		if err := s.Store.DeleteInstance(r.Context(), id); err != nil {
			s.storeProblem(w, r, "Delete instance failed", err)
			return
		}
		s.forget(id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) seed(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.SeedRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxInstanceBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBodyProblem(w, r, "Invalid JSON", err)
		return
	}
	strategy, err := opt.ParseStrategy(req.Strategy)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid seed request", err.Error(), r.URL.Path)
		return
	}
	rec, pi, err := s.instance(r.Context(), id)
	if err != nil {
		s.storeProblem(w, r, "Get instance failed", err)
		return
	}
	sol, err := opt.Seed(pi, strategy)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Seed failed", err.Error(), r.URL.Path)
		return
	}
	ev, err := s.evaluate(r.Context(), rec, pi, sol, string(strategy))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Evaluate failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"solution": []int(sol), "evaluation": ev})
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, err := s.Store.GetInstance(r.Context(), id); err != nil {
		s.storeProblem(w, r, "Get instance failed", err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	s.subscriberGauge(1)
	defer s.subscriberGauge(-1)

	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"instanceId\":%q,\"ts\":%q}\n\n", id, time.Now().UTC().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			b, _ := json.Marshal(evt.Evaluation)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		case <-ticker.C:
			heartbeat()
		}
	}
}

// EvaluateHandler handles POST /v1/evaluate
func (s *Server) EvaluateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.EvaluateRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxInstanceBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBodyProblem(w, r, "Invalid JSON", err)
		return
	}
	if err := validateEvaluateRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid evaluate request", err.Error(), r.URL.Path)
		return
	}
	rec, pi, err := s.instance(r.Context(), req.InstanceID)
	if err != nil {
		s.storeProblem(w, r, "Get instance failed", err)
		return
	}
	ev, err := s.evaluate(r.Context(), rec, pi, opt.Solution(req.Solution), "")
	if errors.Is(err, opt.ErrDimension) {
		writeProblem(w, http.StatusUnprocessableEntity, "Solution does not match instance", err.Error(), r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Evaluate failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// EvaluationsHandler handles GET /v1/evaluations?instanceId=
func (s *Server) EvaluationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	instanceID := q.Get("instanceId")
	if instanceID == "" {
		writeProblem(w, http.StatusBadRequest, "Missing instanceId", "", r.URL.Path)
		return
	}
	limit := 100
	if v := q.Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListEvaluations(r.Context(), instanceID, q.Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List evaluations failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// EvaluationByIDHandler handles GET /v1/evaluations/{id}
func (s *Server) EvaluationByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/evaluations/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	ev, err := s.Store.GetEvaluation(r.Context(), id)
	if err != nil {
		s.storeProblem(w, r, "Get evaluation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}

// storeProblem maps store.ErrNotFound to 404 and anything else to 500.
func (s *Server) storeProblem(w http.ResponseWriter, r *http.Request, title string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), r.URL.Path)
		return
	}
	s.Log.Error(title, "path", r.URL.Path, "err", err)
	writeProblem(w, http.StatusInternalServerError, title, err.Error(), r.URL.Path)
}
