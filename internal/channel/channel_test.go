package channel

import "testing"

func TestBufferedTrySend(t *testing.T) {
	ch := NewBuffered[int](2)
	if !ch.TrySend(1) || !ch.TrySend(2) {
		t.Fatal("sends within capacity should succeed")
	}
	if ch.TrySend(3) {
		t.Error("send beyond capacity should be rejected")
	}
	if ch.Len() != 2 {
		t.Errorf("expected 2 buffered items, got %d", ch.Len())
	}

	got := <-ch.Receive()
	if got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if !ch.TrySend(3) {
		t.Error("send after drain should succeed")
	}
}

func TestUnbufferedTrySendNoReceiver(t *testing.T) {
	ch := NewUnbuffered[int]()
	if ch.TrySend(1) {
		t.Error("unbuffered send without a receiver should be rejected")
	}
	if ch.Len() != 0 {
		t.Errorf("expected length 0, got %d", ch.Len())
	}
}
