package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan SlotExitedEvent, 1)

	unsub := bus.Subscribe(func(e SlotExitedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(SlotExitedEvent{Slot: "relay", PID: 42, ExitCode: 1})

	select {
	case got := <-received:
		if got.Slot != "relay" || got.PID != 42 {
			t.Errorf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_TypeIsolation(t *testing.T) {
	bus := New()
	received := make(chan RecordingStateChangedEvent, 1)

	unsub := bus.Subscribe(func(e RecordingStateChangedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(StreamStateChangedEvent{State: "streaming"})

	select {
	case e := <-received:
		t.Fatalf("received event of the wrong type: %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan StreamStateChangedEvent, 1)

	unsub := bus.Subscribe(func(e StreamStateChangedEvent) {
		received <- e
	})

	bus.Publish(StreamStateChangedEvent{State: "starting"})
	<-received

	unsub()

	bus.Publish(StreamStateChangedEvent{State: "streaming"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_NilPublish(_ *testing.T) {
	var bus *Bus
	bus.Publish(StreamStateChangedEvent{State: "stopped"})
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := SubscribeToChannel[SlotStartedEvent](bus, ch)
	defer unsub()

	bus.Publish(SlotStartedEvent{Slot: "capture", PID: 7})
	bus.Publish(SlotStartedEvent{Slot: "relay", PID: 8}) // dropped, channel full

	select {
	case e := <-ch:
		if got, ok := e.(SlotStartedEvent); !ok || got.Slot != "capture" {
			t.Errorf("unexpected event: %#v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}
