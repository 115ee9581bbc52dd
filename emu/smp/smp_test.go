package smp

import "testing"

func TestLoadLockedStoreConditional(t *testing.T) {
	c := New(2)
	c.RecordReservation(0, 0x2000, 4)

	// A concurrent store by CPU 1 to the same block invalidates CPU 0.
	c.InvalidateBlock(0x2000)
	if c.TryStoreConditional(0, 0x2000, 4) {
		t.Error("SC should fail after a matching store invalidated the reservation")
	}
}

func TestStoreConditionalSucceedsWithNoIntervening(t *testing.T) {
	c := New(1)
	c.RecordReservation(0, 0x2000, 4)
	if !c.TryStoreConditional(0, 0x2000, 4) {
		t.Error("SC should succeed with no intervening store")
	}
	// Reservation is consumed regardless of outcome.
	if c.TryStoreConditional(0, 0x2000, 4) {
		t.Error("second SC with no new LL should fail")
	}
}

func TestConcurrentStoreAndSCNeverBothSucceed(t *testing.T) {
	c := New(2)
	c.RecordReservation(0, 0x4000, 8)

	// CPU 1's plain store to the same 16-byte block, run on its own
	// goroutine, completes before CPU 0's SC is attempted.
	storeWon := make(chan bool, 1)
	scWon := make(chan bool, 1)

	done := make(chan struct{})
	go func() {
		c.InvalidateBlock(0x4000)
		storeWon <- true
		close(done)
	}()
	<-done
	scWon <- c.TryStoreConditional(0, 0x4000, 8)

	if <-storeWon && <-scWon {
		t.Error("store and conditional store to the same block both succeeded")
	}
}

func TestIPIDelivery(t *testing.T) {
	c := New(2)
	if !c.SendIPI(0, 1, 7) {
		t.Fatal("SendIPI should succeed for a known target")
	}
	events := c.Drain(1)
	if len(events) != 1 || events[0].Kind != EventIPI || events[0].Vector != 7 {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestBroadcastIPIExcludesSelfByDefault(t *testing.T) {
	c := New(3)
	c.BroadcastIPI(0, 1, false)
	if len(c.Drain(0)) != 0 {
		t.Error("source should not receive its own broadcast when includeSelf is false")
	}
	if len(c.Drain(1)) != 1 || len(c.Drain(2)) != 1 {
		t.Error("expected both other CPUs to receive the broadcast")
	}
}
