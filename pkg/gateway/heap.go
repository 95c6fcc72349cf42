package gateway

import "container/heap"

// regHeap is a min-heap of registrations ordered by FireAt.
type regHeap []Registration

func (h regHeap) Len() int           { return len(h) }
func (h regHeap) Less(i, j int) bool { return h[i].FireAt.Before(h[j].FireAt) }
func (h regHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *regHeap) Push(x any) {
	*h = append(*h, x.(Registration))
}

func (h *regHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func heapPush(h *regHeap, r Registration) {
	heap.Push(h, r)
}

// heapPop panics on an empty heap.
func heapPop(h *regHeap) Registration {
	return heap.Pop(h).(Registration)
}

// heapRemoveByID removes the registration for id, reporting whether one existed.
func heapRemoveByID(h *regHeap, id string) bool {
	for i, r := range *h {
		if r.ID == id {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}
