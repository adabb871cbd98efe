package delegation

import "testing"

func TestWaiterDeliver(t *testing.T) {
	w := NewResponseWaiter()
	ch := w.Register("req-1")

	if !w.Deliver("req-1", "hello") {
		t.Fatal("delivery to a registered waiter must succeed")
	}
	select {
	case got := <-ch:
		if got != "hello" {
			t.Errorf("got %q", got)
		}
	default:
		t.Fatal("channel must hold the delivered response")
	}
}

func TestWaiterLateDeliveryDropped(t *testing.T) {
	w := NewResponseWaiter()
	if w.Deliver("never-registered", "late") {
		t.Error("delivery with no waiter must report false")
	}

	w.Register("req-2")
	w.Cleanup("req-2")
	if w.Deliver("req-2", "late") {
		t.Error("delivery after cleanup must report false")
	}
}

func TestWaiterDeliverOnlyOnce(t *testing.T) {
	w := NewResponseWaiter()
	w.Register("req-3")

	if !w.Deliver("req-3", "first") {
		t.Fatal("first delivery must succeed")
	}
	if w.Deliver("req-3", "second") {
		t.Error("second delivery for the same id must be dropped")
	}
}
