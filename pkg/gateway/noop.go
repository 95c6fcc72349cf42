package gateway

import (
	"context"
	"time"
)

// NoOp accepts every registration and never fires. Alarms then depend on the
// foreground loop, so the host must stay running.
type NoOp struct {
	fired chan Fired
	now   func() time.Time
}

func NewNoOp() *NoOp {
	return &NoOp{fired: make(chan Fired), now: time.Now}
}

func (n *NoOp) Kind() Kind { return KindNone }

func (n *NoOp) BackgroundCapable() bool { return false }

func (n *NoOp) Register(_ context.Context, reg Registration) (Result, error) {
	if err := validate(reg, n.now()); err != nil {
		return Result{}, err
	}
	return Result{Accepted: true}, nil
}

func (n *NoOp) Cancel(context.Context, string) error { return nil }

func (n *NoOp) CancelAll(context.Context) error { return nil }

func (n *NoOp) Fired() <-chan Fired { return n.fired }

func (n *NoOp) Close() error { return nil }
