// Package smooth provides the exponential parameter ramp every controllable
// audio parameter is driven through.
package smooth

import (
	"math"
	"sync/atomic"
)

// DefaultTimeConstant is the ramp time constant, in seconds, used for all
// live parameter changes.
const DefaultTimeConstant = 0.01

// snapThreshold is the distance below which the current value is set to the
// target so a finished ramp stops producing denormal-sized steps.
const snapThreshold = 1e-7

// Param approaches a target value along an exponential curve:
//
//	v(t) = target + (v0 - target) * exp(-t/tau)
//
// The control goroutine calls SetTarget; the render goroutine calls Next,
// Advance and Value. The target and time constant are packed into a single
// atomic word (two float32 bit patterns) so the pair is always observed
// together and SetTarget never allocates.
type Param struct {
	pending atomic.Uint64

	// Owned by the render goroutine.
	current    float64
	target     float64
	tau        float64
	sampleRate float64
	retain     float64 // per-sample decay factor exp(-1/(tau*fs))
	seen       uint64
}

// New returns a Param resting at initial.
func New(sampleRate int, initial float64) *Param {
	p := &Param{sampleRate: float64(sampleRate)}
	p.Reset(initial)
	return p
}

// Reset jumps to v with no ramp. Only call it before the render goroutine
// can observe the Param (node creation) or while its output is not audible.
func (p *Param) Reset(v float64) {
	w := pack(v, 0)
	p.pending.Store(w)
	p.seen = w
	p.current = float64(float32(v))
	p.target = p.current
	p.tau = 0
	p.retain = 0
}

// SetTarget schedules the value to approach v with time constant tau
// seconds, starting from wherever the ramp currently is. A tau of zero or
// less jumps on the next render step.
func (p *Param) SetTarget(v, tau float64) {
	if tau < 0 || math.IsNaN(tau) {
		tau = 0
	}
	p.pending.Store(pack(v, tau))
}

// Target returns the most recently scheduled target. Safe from any goroutine.
func (p *Param) Target() float64 {
	v, _ := unpack(p.pending.Load())
	return v
}

// Value returns the current instantaneous value. Render goroutine only.
func (p *Param) Value() float64 {
	return p.current
}

// Settled reports whether the ramp has reached its target.
func (p *Param) Settled() bool {
	p.sync()
	return p.current == p.target
}

// Next advances the ramp by one sample and returns the new value.
func (p *Param) Next() float64 {
	p.sync()
	if p.current == p.target {
		return p.current
	}
	p.current = p.target + (p.current-p.target)*p.retain
	if math.Abs(p.current-p.target) < snapThreshold {
		p.current = p.target
	}
	return p.current
}

// Advance moves the ramp forward by n samples in one step and returns the
// value reached. It is used for parameters updated once per control block.
func (p *Param) Advance(n int) float64 {
	p.sync()
	if n <= 0 || p.current == p.target {
		return p.current
	}
	p.current = p.target + (p.current-p.target)*math.Pow(p.retain, float64(n))
	if math.Abs(p.current-p.target) < snapThreshold {
		p.current = p.target
	}
	return p.current
}

// Fill writes the next len(dst) ramp values into dst.
func (p *Param) Fill(dst []float64) {
	for i := range dst {
		dst[i] = p.Next()
	}
}

func (p *Param) sync() {
	w := p.pending.Load()
	if w == p.seen {
		return
	}
	p.seen = w
	target, tau := unpack(w)
	p.target = target
	if tau != p.tau || p.retain == 0 {
		p.tau = tau
		p.retain = decayFactor(tau, p.sampleRate)
	}
}

func decayFactor(tau, sampleRate float64) float64 {
	if tau <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Exp(-1 / (tau * sampleRate))
}

func pack(v, tau float64) uint64 {
	return uint64(math.Float32bits(float32(v)))<<32 | uint64(math.Float32bits(float32(tau)))
}

func unpack(w uint64) (float64, float64) {
	return float64(math.Float32frombits(uint32(w >> 32))), float64(math.Float32frombits(uint32(w)))
}
