package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"github.com/borgmon/waketube/pkg/models"
	"github.com/spf13/afero"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		caps Capabilities
		want Kind
	}{
		{Capabilities{WakeAPI: true, NotificationAPI: true}, KindExact},
		{Capabilities{WakeAPI: true}, KindExact},
		{Capabilities{NotificationAPI: true}, KindNotification},
		{Capabilities{}, KindNone},
	}
	for _, tt := range tests {
		if got := Select(tt.caps); got != tt.want {
			t.Errorf("Select(%+v) = %s, want %s", tt.caps, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	all := Capabilities{WakeAPI: true, NotificationAPI: true}
	tests := []struct {
		mode models.BackgroundMode
		caps Capabilities
		want Kind
	}{
		{models.BackgroundAuto, all, KindExact},
		{models.BackgroundNotification, all, KindNotification},
		{models.BackgroundNone, all, KindNone},
		{models.BackgroundExact, Capabilities{NotificationAPI: true}, KindNotification},
	}
	for _, tt := range tests {
		if got := Resolve(tt.mode, tt.caps); got != tt.want {
			t.Errorf("Resolve(%s, %+v) = %s, want %s", tt.mode, tt.caps, got, tt.want)
		}
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New(Kind("pager"), Options{}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	gateways := []Gateway{NewExact(nil, nil), NewNoOp()}
	for _, g := range gateways {
		defer g.Close()
		if _, err := g.Register(ctx, Registration{FireAt: time.Now().Add(time.Hour)}); !errors.Is(err, ErrMissingID) {
			t.Errorf("%s: expected ErrMissingID, got %v", g.Kind(), err)
		}
		if _, err := g.Register(ctx, Registration{ID: "a"}); !errors.Is(err, ErrInvalidFireInstant) {
			t.Errorf("%s: expected ErrInvalidFireInstant for zero instant, got %v", g.Kind(), err)
		}
		if _, err := g.Register(ctx, Registration{ID: "a", FireAt: time.Now().Add(-time.Minute)}); !errors.Is(err, ErrInvalidFireInstant) {
			t.Errorf("%s: expected ErrInvalidFireInstant for past instant, got %v", g.Kind(), err)
		}
	}
}

func TestExactFires(t *testing.T) {
	var mu sync.Mutex
	var woke []string
	g := NewExact(func(f Fired) {
		mu.Lock()
		woke = append(woke, f.ID)
		mu.Unlock()
	}, nil)
	defer g.Close()

	res, err := g.Register(context.Background(), Registration{
		ID:     "a",
		FireAt: time.Now().Add(100 * time.Millisecond),
		Label:  "Wake up",
		Media:  "https://youtu.be/abc",
	})
	if err != nil || !res.Accepted {
		t.Fatalf("Register: %+v %v", res, err)
	}

	select {
	case f := <-g.Fired():
		if f.ID != "a" || f.Label != "Wake up" || f.Media != "https://youtu.be/abc" {
			t.Errorf("unexpected fired payload %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fired signal")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(woke) != 1 || woke[0] != "a" {
		t.Errorf("expected OnWake for a, got %v", woke)
	}
}

func TestExactCancelBeforeFire(t *testing.T) {
	ctx := context.Background()
	g := NewExact(nil, nil)
	defer g.Close()

	g.Register(ctx, Registration{ID: "a", FireAt: time.Now().Add(100 * time.Millisecond)})
	if err := g.Cancel(ctx, "a"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	// Cancelling again is a no-op.
	if err := g.Cancel(ctx, "a"); err != nil {
		t.Errorf("second Cancel: %v", err)
	}

	select {
	case f := <-g.Fired():
		t.Fatalf("cancelled registration fired: %+v", f)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRegisterReplaces(t *testing.T) {
	ctx := context.Background()
	g := NewExact(nil, nil)
	defer g.Close()

	g.Register(ctx, Registration{ID: "a", FireAt: time.Now().Add(time.Hour)})
	later := time.Now().Add(2 * time.Hour)
	g.Register(ctx, Registration{ID: "a", FireAt: later})

	pending, err := g.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || !pending[0].FireAt.Equal(later) {
		t.Errorf("expected a single replaced registration, got %+v", pending)
	}
}

func TestCancelAll(t *testing.T) {
	ctx := context.Background()
	g := NewExact(nil, nil)
	defer g.Close()

	g.Register(ctx, Registration{ID: "a", FireAt: time.Now().Add(time.Hour)})
	g.Register(ctx, Registration{ID: "b", FireAt: time.Now().Add(time.Hour)})
	if err := g.CancelAll(ctx); err != nil {
		t.Fatalf("CancelAll: %v", err)
	}
	pending, _ := g.Pending(ctx)
	if len(pending) != 0 {
		t.Errorf("expected nothing pending, got %+v", pending)
	}
}

func TestPermissionDenied(t *testing.T) {
	ctx := context.Background()
	granted := true
	g := NewExact(nil, func() bool { return granted })
	defer g.Close()

	g.Register(ctx, Registration{ID: "a", FireAt: time.Now().Add(time.Hour)})
	granted = false

	res, err := g.Register(ctx, Registration{ID: "a", FireAt: time.Now().Add(2 * time.Hour)})
	if err != nil {
		t.Fatalf("permission denial must not be an error: %v", err)
	}
	if res.Accepted || !res.NeedsPermission {
		t.Errorf("expected NeedsPermission result, got %+v", res)
	}
	pending, _ := g.Pending(ctx)
	if len(pending) != 0 {
		t.Errorf("stale registration left pending: %+v", pending)
	}
}

func TestClosedGateway(t *testing.T) {
	g := NewExact(nil, nil)
	g.Close()
	g.Close()

	_, err := g.Register(context.Background(), Registration{ID: "a", FireAt: time.Now().Add(time.Hour)})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestNoOp(t *testing.T) {
	g := NewNoOp()
	if g.BackgroundCapable() {
		t.Error("no-op gateway must not claim background capability")
	}
	res, err := g.Register(context.Background(), Registration{ID: "a", FireAt: time.Now().Add(time.Hour)})
	if err != nil || !res.Accepted {
		t.Errorf("expected trivial success, got %+v %v", res, err)
	}
	if err := g.Cancel(context.Background(), "missing"); err != nil {
		t.Errorf("Cancel: %v", err)
	}
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*fyne.Notification
}

func (f *fakeNotifier) SendNotification(n *fyne.Notification) {
	f.mu.Lock()
	f.sent = append(f.sent, n)
	f.mu.Unlock()
}

func TestNotificationFeedAndDelivery(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	notifier := &fakeNotifier{}
	feed := NewFeedWriter(fs, "/data/alarms.ics")
	g := NewNotification(notifier, feed, nil)
	defer g.Close()

	g.Register(ctx, Registration{ID: "later", FireAt: time.Now().Add(time.Hour), Label: "Gym"})
	g.Register(ctx, Registration{ID: "soon", FireAt: time.Now().Add(100 * time.Millisecond), Label: "Wake"})

	data, err := afero.ReadFile(fs, "/data/alarms.ics")
	if err != nil {
		t.Fatalf("feed not written: %v", err)
	}
	if !strings.Contains(string(data), "UID:later") || !strings.Contains(string(data), "UID:soon") {
		t.Errorf("feed missing registrations:\n%s", data)
	}

	select {
	case f := <-g.Fired():
		if f.ID != "soon" {
			t.Errorf("expected soon to fire, got %s", f.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fired signal")
	}

	notifier.mu.Lock()
	if len(notifier.sent) != 1 || notifier.sent[0].Title != "Wake" {
		t.Errorf("expected one notification titled Wake, got %+v", notifier.sent)
	}
	notifier.mu.Unlock()

	g.CancelAll(ctx)
	if exists, _ := afero.Exists(fs, "/data/alarms.ics"); exists {
		t.Error("feed should be removed once nothing is pending")
	}
}
