package queue

import "testing"

func TestQueueFIFO(t *testing.T) {
	q := New[int](3)
	if !q.Empty() {
		t.Fatal("new queue should be empty")
	}
	if !q.Push(1) || !q.Push(2) || !q.Push(3) {
		t.Fatal("expected three pushes to succeed within capacity")
	}
	if !q.Full() {
		t.Fatal("queue should be full at capacity")
	}
	if q.Push(4) {
		t.Fatal("push beyond capacity should fail")
	}

	for _, want := range []int{1, 2, 3} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Fatalf("pop: got (%d,%v), want (%d,true)", got, ok, want)
		}
	}
	if !q.Empty() {
		t.Fatal("queue should be empty after draining")
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("pop on empty queue should fail")
	}
}

func TestQueueWrapsAroundRingBuffer(t *testing.T) {
	q := New[string](2)
	q.Push("a")
	q.Push("b")
	if v, _ := q.Pop(); v != "a" {
		t.Fatalf("expected a, got %s", v)
	}
	q.Push("c")
	if v, _ := q.Pop(); v != "b" {
		t.Fatalf("expected b, got %s", v)
	}
	if v, _ := q.Pop(); v != "c" {
		t.Fatalf("expected c, got %s", v)
	}
}

func TestTailEnqueueInPlace(t *testing.T) {
	type item struct {
		n int
	}
	q := New[item](1)
	*q.Tail() = item{n: 42}
	if !q.Enqueue() {
		t.Fatal("enqueue should succeed")
	}
	got, ok := q.Pop()
	if !ok || got.n != 42 {
		t.Fatalf("expected {42}, got %+v ok=%v", got, ok)
	}
}
