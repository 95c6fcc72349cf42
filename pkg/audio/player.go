package audio

import (
	"encoding/binary"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	sampleRate    = 44100
	channelCount  = 2
	bytesPerFrame = channelCount * 2

	toneHz   = 880
	rampTick = 100 * time.Millisecond
)

// Global audio context singleton
var (
	globalAudioCtx     *oto.Context
	globalAudioCtxOnce sync.Once
	audioCtxReady      bool
)

// InitAudioContext initializes the global audio context once
func InitAudioContext() {
	globalAudioCtxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channelCount,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			log.Printf("[AUDIO] Failed to initialize audio context: %v", err)
			return
		}

		// Wait for the hardware audio devices to be ready
		<-readyChan

		globalAudioCtx = ctx
		audioCtxReady = true
		log.Println("[AUDIO] Audio context initialized")
	})
}

// Ramp describes how the ringer volume rises.
type Ramp struct {
	Initial  float64       // volume at start, 0..1
	Duration time.Duration // time to reach full volume
}

// VolumeAt returns the ramp volume after elapsed.
func VolumeAt(r Ramp, elapsed time.Duration) float64 {
	initial := clamp(r.Initial)
	if r.Duration <= 0 || elapsed >= r.Duration {
		return 1
	}
	if elapsed <= 0 {
		return initial
	}
	return initial + (1-initial)*float64(elapsed)/float64(r.Duration)
}

// Ringer loops the alarm tone until stopped
type Ringer struct {
	stopChan chan struct{}
	player   *oto.Player
	ramp     Ramp
	started  time.Time

	mu       sync.Mutex
	stopped  bool
	override float64 // user volume, negative while ramping
}

// Ring starts the alarm tone. It returns nil when no audio device is available.
func Ring(ramp Ramp) *Ringer {
	InitAudioContext()

	if !audioCtxReady || globalAudioCtx == nil {
		log.Printf("[AUDIO] Audio context not ready")
		return nil
	}

	r := &Ringer{
		stopChan: make(chan struct{}),
		ramp:     ramp,
		started:  time.Now(),
		override: -1,
	}
	r.player = globalAudioCtx.NewPlayer(&loopReader{data: alarmTone()})
	r.player.SetVolume(VolumeAt(ramp, 0))
	r.player.Play()

	go r.rampLoop()
	return r
}

func (r *Ringer) rampLoop() {
	ticker := time.NewTicker(rampTick)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.stopped {
				r.mu.Unlock()
				return
			}
			if r.override < 0 {
				v := VolumeAt(r.ramp, time.Since(r.started))
				r.player.SetVolume(v)
				if v >= 1 {
					r.mu.Unlock()
					return
				}
			}
			r.mu.Unlock()
		}
	}
}

// SetVolume fixes the volume, ending the ramp.
func (r *Ringer) SetVolume(v float64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.override = clamp(v)
	r.player.SetVolume(r.override)
}

// Volume returns the current playback volume.
func (r *Ringer) Volume() float64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.player.Volume()
}

// Stop stops the audio playback
func (r *Ringer) Stop() {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.stopped {
		r.stopped = true
		close(r.stopChan)
		r.player.Pause()
		if err := r.player.Close(); err != nil {
			log.Printf("[AUDIO] Failed to close player: %v", err)
		}
		log.Println("[AUDIO] Playback stopped")
	}
}

// loopReader repeats data forever.
type loopReader struct {
	data []byte
	pos  int
}

func (l *loopReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		c := copy(p[n:], l.data[l.pos:])
		n += c
		l.pos = (l.pos + c) % len(l.data)
	}
	return n, nil
}

// alarmTone renders one second of signed 16-bit stereo PCM:
// two short beeps followed by silence.
func alarmTone() []byte {
	frames := sampleRate
	buf := make([]byte, frames*bytesPerFrame)
	beep := sampleRate * 15 / 100
	gap := sampleRate / 10

	for i := 0; i < frames; i++ {
		var amp float64
		switch {
		case i < beep, i >= beep+gap && i < 2*beep+gap:
			amp = 0.6 * math.Sin(2*math.Pi*toneHz*float64(i)/sampleRate)
		}
		s := uint16(int16(amp * math.MaxInt16))
		off := i * bytesPerFrame
		binary.LittleEndian.PutUint16(buf[off:], s)
		binary.LittleEndian.PutUint16(buf[off+2:], s)
	}
	return buf
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
