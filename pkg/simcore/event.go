package simcore

// eventKind tags an event with its class; priority is derived from it
// rather than carried separately, so the two can never drift apart.
type eventKind int

const (
	eventEnd      eventKind = iota // priority 0 — ends resolve before new starts at the same instant
	eventStart                     // priority 1
	eventMobility                  // priority 2
)

func (k eventKind) priority() int {
	return int(k)
}

// queuedEvent is the heap element: (time, priority, event_id, node_id).
// Node data itself is never embedded — entities are referred to by
// stable integer ID so the heap carries no cyclic references.
type queuedEvent struct {
	Time    float64
	EventID int
	NodeID  int
	Kind    eventKind
}

// eventHeap is a container/heap.Interface min-heap ordered by
// (time, priority, event_id), giving deterministic FIFO tie-breaking
// under a fixed PRNG seed.
type eventHeap []queuedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	pi, pj := h[i].Kind.priority(), h[j].Kind.priority()
	if pi != pj {
		return pi < pj
	}
	return h[i].EventID < h[j].EventID
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(queuedEvent))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
