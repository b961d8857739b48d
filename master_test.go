package deckmix

import (
	"errors"
	"math"
	"testing"

	intfx "github.com/cbegin/deckmix-go/internal/effects"
)

type constantInput struct {
	value  float32
	closed bool
}

func (c *constantInput) Process(dst []float32) {
	for i := range dst {
		dst[i] = c.value
	}
}

func (c *constantInput) Close() error {
	c.closed = true
	return nil
}

func newTestMaster(t *testing.T, open MicOpener) *MasterBus {
	t.Helper()
	m, err := newMasterBus(48000, blockFrames, 1, open)
	if err != nil {
		t.Fatalf("new master: %v", err)
	}
	return m
}

// runMaster feeds blocks of input through the bus and returns the output.
// input is called with the frame index of each sample.
func runMaster(m *MasterBus, frames int, input func(i int) float32) []float32 {
	out := make([]float32, 0, frames*2)
	buf := make([]float32, blockFrames*2)
	for off := 0; off < frames; off += blockFrames {
		for i := 0; i < blockFrames; i++ {
			v := input(off + i)
			buf[2*i], buf[2*i+1] = v, v
		}
		m.process(buf)
		out = append(out, buf...)
	}
	return out
}

func silence(int) float32 { return 0 }

func impulse(i int) float32 {
	if i == 0 {
		return 1
	}
	return 0
}

func TestMasterMixesMicrophone(t *testing.T) {
	src := &constantInput{value: 0.5}
	m := newTestMaster(t, func() (InputSource, error) { return src, nil })
	m.SetMicVolume(1)
	if err := m.SetMicOnAir(true); err != nil {
		t.Fatalf("mic on: %v", err)
	}
	out := runMaster(m, 4800, silence)
	if last := out[len(out)-1]; math.Abs(float64(last)-0.5) > 1e-3 {
		t.Fatalf("mic output %v, want 0.5", last)
	}

	if err := m.ToggleMic(); err != nil || m.MicOnAir() {
		t.Fatalf("toggle should switch the mic off: %v", err)
	}
	out = runMaster(m, 4800, silence)
	if last := out[len(out)-1]; math.Abs(float64(last)) > 1e-3 {
		t.Fatalf("mic off output %v, want silence", last)
	}
	if err := m.closeInput(); err != nil || !src.closed {
		t.Fatalf("closeInput should close the source: %v", err)
	}
}

func TestMasterMicVolume(t *testing.T) {
	m := newTestMaster(t, func() (InputSource, error) { return &constantInput{value: 0.8}, nil })
	m.SetMicVolume(0.5)
	m.SetMicOnAir(true)
	out := runMaster(m, 4800, silence)
	if last := out[len(out)-1]; math.Abs(float64(last)-0.4) > 1e-3 {
		t.Fatalf("mic output %v, want 0.4", last)
	}
	s := m.Status()
	if !s.MicOnAir || s.MicVolume != 0.5 {
		t.Fatalf("unexpected status %+v", s)
	}
}

func TestMasterDefaults(t *testing.T) {
	m := newTestMaster(t, func() (InputSource, error) { return &constantInput{value: 0.8}, nil })
	s := m.Status()
	if s.Volume != 1 || s.MicVolume != 0 || s.MicEchoTime != 0.5 || s.MicEchoMix != 0 || s.Reverb != 0 {
		t.Fatalf("unexpected defaults %+v", s)
	}
	// The mic is silent until its volume is raised.
	m.SetMicOnAir(true)
	out := runMaster(m, 4800, silence)
	if last := out[len(out)-1]; last != 0 {
		t.Fatalf("mic at default volume = %v, want silence", last)
	}
}

func TestMasterMicUnavailable(t *testing.T) {
	m := newTestMaster(t, nil)
	if err := m.SetMicOnAir(true); !errors.Is(err, ErrMicUnavailable) {
		t.Fatalf("expected ErrMicUnavailable, got %v", err)
	}
	if m.MicOnAir() {
		t.Fatal("mic must stay off without an input")
	}
}

func TestMasterReverbTail(t *testing.T) {
	m := newTestMaster(t, nil)
	m.SetReverb(1)
	out := runMaster(m, 4096, impulse)

	if out[0] != 1 {
		t.Fatalf("dry impulse = %v, want 1", out[0])
	}
	for i := 1; i < intfx.DefaultPartition; i++ {
		if out[2*i] != 0 {
			t.Fatalf("frame %d = %v before the reverb latency", i, out[2*i])
		}
	}
	var tail float64
	for i := intfx.DefaultPartition; i < 4096; i++ {
		tail += math.Abs(float64(out[2*i]))
	}
	if tail == 0 {
		t.Fatal("expected a reverb tail")
	}
	if m.Status().Reverb != 1 {
		t.Fatalf("reverb status %v, want 1", m.Status().Reverb)
	}
}

func TestMasterDryWithoutReverb(t *testing.T) {
	m := newTestMaster(t, nil)
	out := runMaster(m, 4096, impulse)
	if out[0] != 1 || out[1] != 1 {
		t.Fatalf("dry impulse = (%v, %v), want 1", out[0], out[1])
	}
	for i := 2; i < len(out); i++ {
		if out[i] != 0 {
			t.Fatalf("sample %d = %v, want no reverb", i, out[i])
		}
	}
}

func TestMasterVolume(t *testing.T) {
	m := newTestMaster(t, nil)
	m.SetVolume(0)
	out := runMaster(m, 4800, func(int) float32 { return 0.7 })
	if last := out[len(out)-1]; math.Abs(float64(last)) > 1e-3 {
		t.Fatalf("muted master output %v", last)
	}
	m.SetVolume(2)
	if v := m.Status().Volume; v != 1 {
		t.Fatalf("volume should clamp to 1, got %v", v)
	}
}
