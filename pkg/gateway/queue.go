package gateway

import (
	"container/heap"
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

// maxSleepCap bounds each timer wait so a wall-clock step or system sleep
// is noticed within a minute.
const maxSleepCap = 60 * time.Second

type opKind int

const (
	opAdd opKind = iota
	opRemove
	opClear
	opPending
)

type op struct {
	kind  opKind
	reg   Registration
	id    string
	reply chan []Registration
}

// timerQueue is a single goroutine owning a min-heap of registrations.
// All mutations travel over one channel, so a cancel followed by a register
// from the same caller is applied in that order.
type timerQueue struct {
	ops       chan op
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	onDue    func(Registration)
	onChange func([]Registration)
}

func newTimerQueue(onDue func(Registration), onChange func([]Registration)) *timerQueue {
	q := &timerQueue{
		ops:      make(chan op),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		onDue:    onDue,
		onChange: onChange,
	}
	go q.run()
	return q
}

// do hands o to the queue goroutine and waits until it has been applied.
func (q *timerQueue) do(ctx context.Context, o op) ([]Registration, error) {
	o.reply = make(chan []Registration, 1)
	select {
	case q.ops <- o:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.stop:
		return nil, ErrClosed
	}
	select {
	case pending := <-o.reply:
		return pending, nil
	case <-q.done:
		return nil, ErrClosed
	}
}

func (q *timerQueue) close() {
	q.closeOnce.Do(func() { close(q.stop) })
	<-q.done
}

func (q *timerQueue) run() {
	defer close(q.done)

	h := &regHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			return nil
		}
		dur := time.Until((*h)[0].FireAt)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-q.stop:
			return

		case o := <-q.ops:
			changed := false
			switch o.kind {
			case opAdd:
				heapRemoveByID(h, o.reg.ID)
				heapPush(h, o.reg)
				changed = true
			case opRemove:
				changed = heapRemoveByID(h, o.id)
			case opClear:
				changed = h.Len() > 0
				*h = (*h)[:0]
			}
			pending := snapshot(h)
			if changed && q.onChange != nil {
				q.onChange(pending)
			}
			o.reply <- pending
			timerCh = resetTimer()

		case <-timerCh:
			now := time.Now()
			due := 0
			for h.Len() > 0 && !(*h)[0].FireAt.After(now) {
				reg := heapPop(h)
				due++
				log.Printf("[GATEWAY] Due: %s (scheduled %s)", reg.ID, reg.FireAt.Format("Mon 15:04"))
				q.onDue(reg)
			}
			if due > 0 && q.onChange != nil {
				q.onChange(snapshot(h))
			}
			timerCh = resetTimer()
		}
	}
}

// snapshot copies the heap ordered by fire instant.
func snapshot(h *regHeap) []Registration {
	out := make([]Registration, len(*h))
	copy(out, *h)
	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

// timerGateway is the shared body of the exact and notification variants.
type timerGateway struct {
	q          *timerQueue
	fired      chan Fired
	permission PermissionFunc
	hook       func(Fired)
	now        func() time.Time
}

func newTimerGateway(permission PermissionFunc, hook func(Fired), onChange func([]Registration)) *timerGateway {
	g := &timerGateway{
		fired:      make(chan Fired, 16),
		permission: permission,
		hook:       hook,
		now:        time.Now,
	}
	g.q = newTimerQueue(g.deliver, onChange)
	return g
}

func (g *timerGateway) deliver(reg Registration) {
	f := Fired{ID: reg.ID, Label: reg.Label, Media: reg.Media, At: time.Now()}
	if g.hook != nil {
		g.hook(f)
	}
	select {
	case g.fired <- f:
	case <-g.q.stop:
	}
}

func (g *timerGateway) Register(ctx context.Context, reg Registration) (Result, error) {
	if err := validate(reg, g.now()); err != nil {
		return Result{}, err
	}
	if g.permission != nil && !g.permission() {
		// Nothing may stay pending for an id the platform refused.
		if _, err := g.q.do(ctx, op{kind: opRemove, id: reg.ID}); err != nil {
			return Result{}, err
		}
		log.Printf("[GATEWAY] Background scheduling not permitted for %s, foreground only", reg.ID)
		return Result{NeedsPermission: true}, nil
	}
	if _, err := g.q.do(ctx, op{kind: opAdd, reg: reg}); err != nil {
		return Result{}, err
	}
	return Result{Accepted: true}, nil
}

func (g *timerGateway) Cancel(ctx context.Context, id string) error {
	_, err := g.q.do(ctx, op{kind: opRemove, id: id})
	return err
}

func (g *timerGateway) CancelAll(ctx context.Context) error {
	_, err := g.q.do(ctx, op{kind: opClear})
	return err
}

// Pending returns the registrations still waiting to fire, earliest first.
func (g *timerGateway) Pending(ctx context.Context) ([]Registration, error) {
	return g.q.do(ctx, op{kind: opPending})
}

func (g *timerGateway) Fired() <-chan Fired {
	return g.fired
}

func (g *timerGateway) Close() error {
	g.q.close()
	return nil
}
