package nara

import (
	"container/heap"
	"sync"
	"time"
)

// timerEntry is one (deadline, waker) pair in the wheel (§3 "Timer entry").
// index is maintained by timerHeap so cancel can be O(log n) instead of a
// linear scan.
type timerEntry struct {
	id       uint64
	deadline time.Time
	waker    Waker
	index    int
}

// timerHeap is a binary min-heap ordered by (deadline, id), the tie-break
// the spec requires for deterministic wake order among equal deadlines
// (§4.2 "Implementation freedom").
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].id < h[j].id
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// timers is the timer wheel of §4.2: a min-ordered structure mapping
// deadlines to wakers, keyed by monotonically increasing entry id.
type timers struct {
	mu     sync.Mutex
	h      timerHeap
	byID   map[uint64]*timerEntry
	nextID uint64
}

func newTimers() *timers {
	return &timers{byID: make(map[uint64]*timerEntry, 16)}
}

// insert stores deadline with no waker yet and returns its entry id. The
// waker is attached with setWaker in a separate call so a future can
// re-arm without disturbing heap order (§4.2).
func (t *timers) insert(deadline time.Time) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	e := &timerEntry{id: id, deadline: deadline}
	t.byID[id] = e
	heap.Push(&t.h, e)
	return id
}

// setWaker records the waker to invoke when id's deadline is reached. A
// no-op if id is not (or is no longer) present.
func (t *timers) setWaker(id uint64, w Waker) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.byID[id]; ok {
		e.waker = w
	}
}

// cancel removes id if still present; idempotent (§8 round-trip property).
func (t *timers) cancel(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	heap.Remove(&t.h, e.index)
}

// nextDeadline returns the minimum deadline currently held.
func (t *timers) nextDeadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.h) == 0 {
		return time.Time{}, false
	}
	return t.h[0].deadline, true
}

// drainExpired removes and returns the wakers of every entry whose
// deadline is <= now, in deadline order (§4.2: "O((k+1)*log n) for k
// expired").
func (t *timers) drainExpired(now time.Time) []Waker {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Waker
	for len(t.h) > 0 && !t.h[0].deadline.After(now) {
		e := heap.Pop(&t.h).(*timerEntry)
		delete(t.byID, e.id)
		if !e.waker.IsZero() {
			out = append(out, e.waker)
		}
	}
	return out
}
