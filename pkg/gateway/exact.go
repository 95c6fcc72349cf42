package gateway

// Exact wakes the app at the fire instant from an in-process timer queue.
type Exact struct {
	*timerGateway
}

// NewExact starts the queue. onWake runs on the queue goroutine before the
// Fired signal is emitted and should only hand off to the UI thread.
func NewExact(onWake func(Fired), permission PermissionFunc) *Exact {
	return &Exact{timerGateway: newTimerGateway(permission, onWake, nil)}
}

func (e *Exact) Kind() Kind { return KindExact }

func (e *Exact) BackgroundCapable() bool { return true }
