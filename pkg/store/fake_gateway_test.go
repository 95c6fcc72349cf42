package store

import (
	"context"
	"errors"
	"sync"

	"github.com/borgmon/waketube/pkg/gateway"
	"github.com/borgmon/waketube/pkg/models"
)

// fakeGateway records calls in order.
type fakeGateway struct {
	mu      sync.Mutex
	calls   []string
	pending map[string]gateway.Registration

	registerErr     error
	needsPermission bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{pending: make(map[string]gateway.Registration)}
}

func (f *fakeGateway) Kind() gateway.Kind { return "fake" }

func (f *fakeGateway) BackgroundCapable() bool { return true }

func (f *fakeGateway) Register(_ context.Context, reg gateway.Registration) (gateway.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "register:"+reg.ID)
	if f.registerErr != nil {
		return gateway.Result{}, f.registerErr
	}
	if f.needsPermission {
		return gateway.Result{NeedsPermission: true}, nil
	}
	f.pending[reg.ID] = reg
	return gateway.Result{Accepted: true}, nil
}

func (f *fakeGateway) Cancel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "cancel:"+id)
	delete(f.pending, id)
	return nil
}

func (f *fakeGateway) CancelAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "cancelAll")
	f.pending = make(map[string]gateway.Registration)
	return nil
}

func (f *fakeGateway) Fired() <-chan gateway.Fired { return nil }

func (f *fakeGateway) Close() error { return nil }

func (f *fakeGateway) takeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := f.calls
	f.calls = nil
	return calls
}

func (f *fakeGateway) registration(id string) (gateway.Registration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.pending[id]
	return reg, ok
}

// failingPersister rejects every save.
type failingPersister struct{}

var errDiskFull = errors.New("disk full")

func (failingPersister) Load() ([]models.AlarmRule, error) { return nil, nil }

func (failingPersister) Save([]models.AlarmRule) error { return errDiskFull }
