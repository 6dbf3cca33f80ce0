package fanout_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightframe/investigator/internal/agentloop"
	"github.com/brightframe/investigator/internal/fanout"
)

func TestBus_DeliversToSubscriber(t *testing.T) {
	bus := fanout.NewBus()
	ch, unsubscribe := bus.Subscribe("inv-1")
	defer unsubscribe()

	bus.Emit(agentloop.ProgressEvent{Kind: agentloop.EventStarted, InvestigationID: "inv-1"})

	select {
	case e := <-ch:
		assert.Equal(t, agentloop.EventStarted, e.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}
}

func TestBus_DoesNotCrossDeliverBetweenInvestigations(t *testing.T) {
	bus := fanout.NewBus()
	ch, unsubscribe := bus.Subscribe("inv-1")
	defer unsubscribe()

	bus.Emit(agentloop.ProgressEvent{Kind: agentloop.EventStarted, InvestigationID: "inv-2"})

	select {
	case <-ch:
		t.Fatal("unexpected cross-investigation delivery")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_MultipleSubscribersEachReceive(t *testing.T) {
	bus := fanout.NewBus()
	ch1, unsub1 := bus.Subscribe("inv-1")
	ch2, unsub2 := bus.Subscribe("inv-1")
	defer unsub1()
	defer unsub2()

	require.Equal(t, 2, bus.SubscriberCount("inv-1"))
	bus.Emit(agentloop.ProgressEvent{Kind: agentloop.EventTurn, InvestigationID: "inv-1", TurnNumber: 1})

	for _, ch := range []<-chan agentloop.ProgressEvent{ch1, ch2} {
		select {
		case e := <-ch:
			assert.Equal(t, 1, e.TurnNumber)
		case <-time.After(time.Second):
			t.Fatal("expected event on each subscriber")
		}
	}
}

func TestBus_DropsOldestNonTerminalUnderBackpressure(t *testing.T) {
	bus := fanout.NewBus()
	ch, unsubscribe := bus.Subscribe("inv-1")
	defer unsubscribe()

	// Flood far past the internal queue capacity with non-terminal events,
	// then the loop's final Completed event must still arrive.
	for i := 0; i < 200; i++ {
		bus.Emit(agentloop.ProgressEvent{Kind: agentloop.EventProgress, InvestigationID: "inv-1", Message: "tick"})
	}
	bus.Emit(agentloop.ProgressEvent{Kind: agentloop.EventCompleted, InvestigationID: "inv-1"})

	var sawCompleted bool
	drainLoop:
	for {
		select {
		case e := <-ch:
			if e.Kind == agentloop.EventCompleted {
				sawCompleted = true
			}
		default:
			break drainLoop
		}
	}
	assert.True(t, sawCompleted, "terminal event must never be dropped")
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := fanout.NewBus()
	ch, unsubscribe := bus.Subscribe("inv-1")
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
	assert.Equal(t, 0, bus.SubscriberCount("inv-1"))
}
