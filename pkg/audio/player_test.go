package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func TestVolumeAt(t *testing.T) {
	ramp := Ramp{Initial: 0.2, Duration: 10 * time.Second}
	tests := []struct {
		elapsed time.Duration
		want    float64
	}{
		{0, 0.2},
		{5 * time.Second, 0.6},
		{10 * time.Second, 1},
		{time.Minute, 1},
		{-time.Second, 0.2},
	}
	for _, tt := range tests {
		if got := VolumeAt(ramp, tt.elapsed); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("VolumeAt(%v) = %v, want %v", tt.elapsed, got, tt.want)
		}
	}
}

func TestVolumeAtWithoutRamp(t *testing.T) {
	if got := VolumeAt(Ramp{Initial: 0.3}, 0); got != 1 {
		t.Errorf("zero-length ramp should start at full volume, got %v", got)
	}
	if got := VolumeAt(Ramp{Initial: -2, Duration: time.Second}, 0); got != 0 {
		t.Errorf("initial volume should clamp to 0, got %v", got)
	}
}

func TestAlarmToneShape(t *testing.T) {
	tone := alarmTone()
	if len(tone) != sampleRate*bytesPerFrame {
		t.Fatalf("expected one second of audio, got %d bytes", len(tone))
	}

	sample := func(frame int) int16 {
		return int16(binary.LittleEndian.Uint16(tone[frame*bytesPerFrame:]))
	}
	loud := false
	for i := 0; i < 200; i++ {
		if sample(i) != 0 {
			loud = true
			break
		}
	}
	if !loud {
		t.Error("expected the tone to start with a beep")
	}
	if s := sample(sampleRate - 1); s != 0 {
		t.Errorf("expected trailing silence, got sample %d", s)
	}
}

func TestLoopReaderWraps(t *testing.T) {
	r := &loopReader{data: []byte{1, 2, 3}}
	buf := make([]byte, 7)
	n, err := r.Read(buf)
	if err != nil || n != 7 {
		t.Fatalf("Read: %d %v", n, err)
	}
	want := []byte{1, 2, 3, 1, 2, 3, 1}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("got %v, want %v", buf, want)
		}
	}
}
