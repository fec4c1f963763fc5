package motion

import "testing"

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue(4)

	for i := int64(0); i < 4; i++ {
		m := Move{}
		m.Target.X = i
		if !q.Push(m) {
			t.Fatalf("push %d: unexpected false", i)
		}
	}

	if q.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", q.Len())
	}

	for i := int64(0); i < 4; i++ {
		m, ok := q.Pull()
		if !ok {
			t.Fatalf("pull %d: unexpected false", i)
		}
		if m.Target.X != i {
			t.Errorf("pull %d: target.X = %d, want %d", i, m.Target.X, i)
		}
	}

	if q.Len() != 0 {
		t.Errorf("Len() after draining = %d, want 0", q.Len())
	}
}

func TestQueueOverflowLeavesStateUnchanged(t *testing.T) {
	q := NewQueue(2)
	q.Push(Move{})
	q.Push(Move{})

	if !q.Full() {
		t.Fatal("expected queue to report full at capacity")
	}
	if q.Push(Move{}) {
		t.Fatal("push past capacity should return false")
	}
	if q.Len() != 2 {
		t.Errorf("Len() after rejected push = %d, want 2 (state must be unchanged)", q.Len())
	}
}

func TestQueuePeekDoesNotRemove(t *testing.T) {
	q := NewQueue(2)
	m := Move{}
	m.Target.X = 7
	q.Push(m)

	peeked, ok := q.Peek(0)
	if !ok || peeked.Target.X != 7 {
		t.Fatalf("Peek(0) = %+v, %v", peeked, ok)
	}
	if q.Len() != 1 {
		t.Errorf("Peek should not remove: Len() = %d, want 1", q.Len())
	}
}

func TestQueueClear(t *testing.T) {
	q := NewQueue(4)
	q.Push(Move{})
	q.Push(Move{})
	q.Clear()

	if q.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", q.Len())
	}
	if _, ok := q.Pull(); ok {
		t.Error("Pull after Clear should report empty")
	}
}
