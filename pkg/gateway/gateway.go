// Package gateway mirrors enabled alarms into a background "fire at instant T"
// scheduler so they can ring while the foreground trigger loop is not polling.
//
// Three variants share one contract and are chosen once at startup:
// an exact in-process wake timer, a desktop-notification scheduler that also
// publishes an iCalendar feed, and a no-op used when neither is available.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/borgmon/waketube/pkg/models"
)

var (
	ErrMissingID          = errors.New("registration has no alarm id")
	ErrInvalidFireInstant = errors.New("fire instant must be in the future")
	ErrClosed             = errors.New("gateway closed")
	ErrUnknownKind        = errors.New("unknown gateway kind")
)

// Kind tags a gateway variant.
type Kind string

const (
	KindExact        Kind = "exact"
	KindNotification Kind = "notification"
	KindNone         Kind = "none"
)

// Registration asks the gateway to fire an alarm at FireAt.
type Registration struct {
	ID     string
	FireAt time.Time
	Label  string
	Media  string
}

// Result is the outcome of a Register call.
// NeedsPermission is informational; nothing here prompts the user.
type Result struct {
	Accepted        bool `json:"success"`
	NeedsPermission bool `json:"needsPermission,omitempty"`
}

// Fired is the signal a gateway emits when a registration comes due.
type Fired struct {
	ID    string
	Label string
	Media string
	At    time.Time
}

// Gateway is the background scheduling contract.
type Gateway interface {
	Kind() Kind
	BackgroundCapable() bool
	// Register replaces any pending registration for reg.ID.
	Register(ctx context.Context, reg Registration) (Result, error)
	// Cancel is a no-op for ids with nothing pending.
	Cancel(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
	Fired() <-chan Fired
	Close() error
}

// PermissionFunc reports whether the platform currently allows background scheduling.
type PermissionFunc func() bool

// Capabilities describes the background primitives available at startup.
type Capabilities struct {
	WakeAPI         bool
	NotificationAPI bool
}

// Select picks the variant for caps: exact wake first, then notifications, else none.
func Select(caps Capabilities) Kind {
	switch {
	case caps.WakeAPI:
		return KindExact
	case caps.NotificationAPI:
		return KindNotification
	default:
		return KindNone
	}
}

// Resolve applies a configured background mode on top of Select.
// A forced mode the platform cannot serve falls back to Select.
func Resolve(mode models.BackgroundMode, caps Capabilities) Kind {
	switch mode {
	case models.BackgroundExact:
		if caps.WakeAPI {
			return KindExact
		}
	case models.BackgroundNotification:
		if caps.NotificationAPI {
			return KindNotification
		}
	case models.BackgroundNone:
		return KindNone
	}
	return Select(caps)
}

// Options carries the collaborators of every variant. Unused fields are ignored.
type Options struct {
	// OnWake raises the app when the exact variant fires.
	OnWake func(Fired)
	// Notifier delivers desktop notifications for the notification variant.
	Notifier Notifier
	// Feed publishes pending registrations as an iCalendar file.
	Feed *FeedWriter
	// Permission is consulted on every Register; nil means granted.
	Permission PermissionFunc
}

// New builds the variant for kind.
func New(kind Kind, opts Options) (Gateway, error) {
	switch kind {
	case KindExact:
		return NewExact(opts.OnWake, opts.Permission), nil
	case KindNotification:
		return NewNotification(opts.Notifier, opts.Feed, opts.Permission), nil
	case KindNone:
		return NewNoOp(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func validate(reg Registration, now time.Time) error {
	if reg.ID == "" {
		return ErrMissingID
	}
	if reg.FireAt.IsZero() || !reg.FireAt.After(now) {
		return fmt.Errorf("%w: %s", ErrInvalidFireInstant, reg.FireAt.Format(time.RFC3339))
	}
	return nil
}
