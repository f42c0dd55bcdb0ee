package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vesselpdp/internal/metrics"
	"vesselpdp/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// wsMessage is the envelope in both directions. Clients send subscribe,
// unsubscribe and ping; the server answers with subscribed, unsubscribed,
// pong, event and error.
type wsMessage struct {
	Type       string       `json:"type"`
	InstanceID string       `json:"instanceId,omitempty"`
	Event      *model.Event `json:"event,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// WSHandler handles /v1/ws
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// gorilla connections allow one concurrent writer
	var wmu sync.Mutex
	write := func(v wsMessage) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}

	subs := map[string]chan model.Event{} // instance id -> channel
	defer func() {
		for id, ch := range subs {
			s.Broker.Unsubscribe(id, ch)
			s.subscriberGauge(-1)
		}
	}()

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(60 * time.Second)) })

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				wmu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				wmu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			id := msg.InstanceID
			if id == "" {
				_ = write(wsMessage{Type: "error", Error: "instanceId required"})
				continue
			}
			if _, ok := subs[id]; ok {
				_ = write(wsMessage{Type: "subscribed", InstanceID: id})
				continue
			}
			if _, err := s.Store.GetInstance(r.Context(), id); err != nil {
				_ = write(wsMessage{Type: "error", InstanceID: id, Error: err.Error()})
				continue
			}
			ch := s.Broker.Subscribe(id)
			subs[id] = ch
			s.subscriberGauge(1)
			go func(ch chan model.Event) {
				for evt := range ch {
					if err := write(wsMessage{Type: "event", InstanceID: evt.InstanceID, Event: &evt}); err != nil {
						return
					}
				}
			}(ch)
			_ = write(wsMessage{Type: "subscribed", InstanceID: id})
		case "unsubscribe":
			if ch, ok := subs[msg.InstanceID]; ok {
				s.Broker.Unsubscribe(msg.InstanceID, ch)
				s.subscriberGauge(-1)
				delete(subs, msg.InstanceID)
			}
			_ = write(wsMessage{Type: "unsubscribed", InstanceID: msg.InstanceID})
		default:
			raw, _ := json.Marshal(msg.Type)
			_ = write(wsMessage{Type: "error", Error: "unknown message type " + string(raw)})
		}
	}
}

func (s *Server) subscriberGauge(delta float64) { metrics.StreamSubscribers.Add(delta) }
