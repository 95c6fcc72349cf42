package main

import (
	"log"

	"golang.design/x/hotkey"
)

type guardKind int

const (
	guardAcquire guardKind = iota
	guardRelease
	guardFocus
	guardBlur
	guardFlush
)

type guardEvent struct {
	kind guardKind
	done chan struct{}
}

// quitGuard owns the one Cmd+Q hotkey shared by all wake windows. The key
// is held while at least one window is open and WakeTube has focus. A
// single goroutine handles the events in the order they were sent.
type quitGuard struct {
	events   chan guardEvent
	register func() (unregister func())
}

func newQuitGuard(register func() func()) *quitGuard {
	g := &quitGuard{
		events:   make(chan guardEvent, 16),
		register: register,
	}
	go g.run()
	return g
}

// Acquire is called when a wake window opens.
func (g *quitGuard) Acquire() { g.events <- guardEvent{kind: guardAcquire} }

// Release is called when a wake window closes.
func (g *quitGuard) Release() { g.events <- guardEvent{kind: guardRelease} }

// SetFocused reports a change of application focus.
func (g *quitGuard) SetFocused(focused bool) {
	if focused {
		g.events <- guardEvent{kind: guardFocus}
		return
	}
	g.events <- guardEvent{kind: guardBlur}
}

// flush waits until every earlier event has been handled.
func (g *quitGuard) flush() {
	done := make(chan struct{})
	g.events <- guardEvent{kind: guardFlush, done: done}
	<-done
}

func (g *quitGuard) run() {
	var unregister func()
	holders, focused := 0, true

	for ev := range g.events {
		switch ev.kind {
		case guardAcquire:
			// A new wake window raises the app.
			holders++
			focused = true
		case guardRelease:
			if holders > 0 {
				holders--
			}
		case guardFocus:
			focused = true
		case guardBlur:
			focused = false
		}

		// A failed registration is retried on the next event.
		want := holders > 0 && focused
		switch {
		case want && unregister == nil:
			unregister = g.register()
		case !want && unregister != nil:
			unregister()
			unregister = nil
		}

		if ev.done != nil {
			close(ev.done)
		}
	}
}

func registerCmdQPrevention() func() {
	hk := hotkey.New([]hotkey.Modifier{hotkey.ModCmd}, hotkey.KeyQ)
	if err := hk.Register(); err != nil {
		log.Printf("[WAKE] Failed to register Cmd+Q hotkey prevention: %v", err)
		return nil
	}
	log.Println("[WAKE] Cmd+Q blocked while an alarm rings")
	go func() {
		for range hk.Keydown() {
			log.Println("[WAKE] Cmd+Q blocked - hold the dismiss button")
		}
	}()
	return func() {
		if err := hk.Unregister(); err != nil {
			log.Printf("[WAKE] Failed to release Cmd+Q hotkey: %v", err)
		}
	}
}
