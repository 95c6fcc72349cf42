package gateway

import (
	"testing"
	"time"
)

func TestHeapOrdering(t *testing.T) {
	h := &regHeap{}
	base := time.Now()

	heapPush(h, Registration{ID: "c", FireAt: base.Add(3 * time.Hour)})
	heapPush(h, Registration{ID: "a", FireAt: base.Add(1 * time.Hour)})
	heapPush(h, Registration{ID: "b", FireAt: base.Add(2 * time.Hour)})

	for _, want := range []string{"a", "b", "c"} {
		if got := heapPop(h); got.ID != want {
			t.Errorf("expected %s, got %s", want, got.ID)
		}
	}
}

func TestHeapRemoveByID(t *testing.T) {
	h := &regHeap{}
	base := time.Now()
	heapPush(h, Registration{ID: "a", FireAt: base.Add(time.Hour)})
	heapPush(h, Registration{ID: "b", FireAt: base.Add(2 * time.Hour)})

	if !heapRemoveByID(h, "a") {
		t.Fatal("expected removal to succeed")
	}
	if heapRemoveByID(h, "a") {
		t.Error("second removal should report nothing removed")
	}
	if h.Len() != 1 || (*h)[0].ID != "b" {
		t.Errorf("unexpected heap contents %+v", *h)
	}
}
