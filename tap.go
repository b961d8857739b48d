package deckmix

import (
	"fmt"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/window"
	vecmath "github.com/cwbudde/algo-vecmath"
)

// DefaultTapFrames is the history kept by each signal tap.
const DefaultTapFrames = 8192

// Tap keeps the most recent mono samples passing a point in the signal path
// for visualization.
type Tap struct {
	mu       sync.Mutex
	ring     []float32
	writePos int
	written  int64
}

func newTap(frames int) *Tap {
	if frames <= 0 {
		frames = DefaultTapFrames
	}
	return &Tap{ring: make([]float32, frames)}
}

// write is called from the render goroutine with interleaved stereo. When a
// reader holds the lock the block is dropped instead of waiting.
func (t *Tap) write(samples []float32) {
	if !t.mu.TryLock() {
		return
	}
	for i := 0; i+1 < len(samples); i += 2 {
		t.ring[t.writePos] = (samples[i] + samples[i+1]) * 0.5
		t.writePos++
		if t.writePos == len(t.ring) {
			t.writePos = 0
		}
		t.written++
	}
	t.mu.Unlock()
}

// Len returns the capacity of the tap in samples.
func (t *Tap) Len() int {
	return len(t.ring)
}

// Written returns the total number of samples recorded.
func (t *Tap) Written() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written
}

// Snapshot returns the last n samples, oldest first. n is capped at Len;
// samples not yet written read as zero.
func (t *Tap) Snapshot(n int) []float32 {
	size := len(t.ring)
	if n > size {
		n = size
	}
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	t.mu.Lock()
	start := (t.writePos - n + size) % size
	for i := range out {
		out[i] = t.ring[(start+i)%size]
	}
	t.mu.Unlock()
	return out
}

// Spectrum returns the magnitude spectrum of the last n samples with a Hann
// window applied, as n/2+1 bins from DC to Nyquist. n must be a power of two.
func (t *Tap) Spectrum(n int) ([]float64, error) {
	if n < 2 || n&(n-1) != 0 || n > len(t.ring) {
		return nil, fmt.Errorf("deckmix: spectrum size %d must be a power of two <= %d", n, len(t.ring))
	}
	snap := t.Snapshot(n)
	buf := make([]float64, n)
	for i, v := range snap {
		buf[i] = float64(v)
	}
	window.Apply(window.TypeHann, buf, window.WithPeriodic())

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("deckmix: spectrum plan: %w", err)
	}
	in := make([]complex128, n)
	for i, v := range buf {
		in[i] = complex(v, 0)
	}
	freq := make([]complex128, n)
	if err := plan.Forward(freq, in); err != nil {
		return nil, fmt.Errorf("deckmix: spectrum transform: %w", err)
	}
	bins := n/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for i := range re {
		re[i], im[i] = real(freq[i]), imag(freq[i])
	}
	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)
	return mag, nil
}
