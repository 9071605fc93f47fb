package simcore

import (
	"container/heap"
	"testing"
)

func TestEventHeapOrdersByTimeThenPriorityThenID(t *testing.T) {
	h := &eventHeap{}
	heap.Init(h)

	heap.Push(h, queuedEvent{Time: 5, EventID: 2, Kind: eventStart})
	heap.Push(h, queuedEvent{Time: 5, EventID: 1, Kind: eventEnd})
	heap.Push(h, queuedEvent{Time: 5, EventID: 3, Kind: eventMobility})
	heap.Push(h, queuedEvent{Time: 1, EventID: 4, Kind: eventMobility})
	heap.Push(h, queuedEvent{Time: 5, EventID: 0, Kind: eventStart})

	var order []int
	for h.Len() > 0 {
		order = append(order, heap.Pop(h).(queuedEvent).EventID)
	}

	want := []int{4, 1, 0, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}
