package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesselpdp/internal/model"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("i1")
	other := b.Subscribe("i2")

	evt := model.Event{Type: model.EventEvaluationCompleted, InstanceID: "i1", Evaluation: model.Evaluation{Cost: 550}}
	b.Publish("i1", evt)

	select {
	case got := <-ch:
		assert.Equal(t, evt, got)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case got := <-other:
		t.Fatalf("unexpected event on other instance: %+v", got)
	default:
	}

	b.Unsubscribe("i1", ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")

	// second unsubscribe is a no-op
	b.Unsubscribe("i1", ch)
	b.Unsubscribe("i2", other)
}

func TestBrokerDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("i1")
	defer b.Unsubscribe("i1", ch)
	for i := 0; i < cap(ch)+5; i++ {
		b.Publish("i1", model.Event{Type: model.EventEvaluationCompleted})
	}
	require.Len(t, ch, cap(ch))
}
