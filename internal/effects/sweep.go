package effects

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/deckmix-go/internal/smooth"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// SweepMinFreq is the cutoff reached at either end of the sweep.
const SweepMinFreq = 20.0

// SweepQ is the resonance of the sweep filter in both modes.
const SweepQ = 1.0

// SweepMode is the filter type selected by the sign of the position.
type SweepMode int

const (
	SweepBypass SweepMode = iota
	SweepLowpass
	SweepHighpass
)

func (m SweepMode) String() string {
	switch m {
	case SweepLowpass:
		return "lowpass"
	case SweepHighpass:
		return "highpass"
	default:
		return "bypass"
	}
}

// SweepModeFor returns the filter type for position p in [-1, 1].
func SweepModeFor(p float64) SweepMode {
	switch {
	case p > 0:
		return SweepLowpass
	case p < 0:
		return SweepHighpass
	default:
		return SweepBypass
	}
}

// SweepCutoff maps position p in [-1, 1] to a cutoff frequency on a
// logarithmic scale between SweepMinFreq and maxFreq (Nyquist).
//
//	p > 0: f = fMin * exp(ln(fMax/fMin) * (1-p))   lowpass
//	p < 0: f = fMin * exp(ln(fMax/fMin) * (p+1))   highpass
//	p = 0: f = fMax                                 bypass
func SweepCutoff(p, maxFreq float64) float64 {
	p = clamp(p, -1, 1)
	span := math.Log(maxFreq / SweepMinFreq)
	switch {
	case p > 0:
		return SweepMinFreq * math.Exp(span*(1-p))
	case p < 0:
		return SweepMinFreq * math.Exp(span*(p+1))
	default:
		return maxFreq
	}
}

// SweepFilter is a single resonant filter acting as lowpass for positive
// positions and highpass for negative ones. At position 0 the stage passes
// the signal through untouched.
type SweepFilter struct {
	sampleRate float64
	nyquist    float64
	position   atomic.Uint64

	// Render goroutine state.
	mode    SweepMode
	cutoff  *smooth.Param
	applied float64
	section *stereoSection
}

// NewSweepFilter creates the filter resting at position.
func NewSweepFilter(sampleRate int, position float64) *SweepFilter {
	f := &SweepFilter{
		sampleRate: float64(sampleRate),
		nyquist:    float64(sampleRate) / 2,
	}
	position = clamp(position, -1, 1)
	f.position.Store(math.Float64bits(position))
	f.mode = SweepModeFor(position)
	f.cutoff = smooth.New(sampleRate, SweepCutoff(position, f.nyquist))
	f.applied = f.cutoff.Value()
	f.section = newStereoSection(f.design())
	return f
}

// SetPosition moves the sweep. Safe from the control goroutine.
func (f *SweepFilter) SetPosition(p float64) {
	f.position.Store(math.Float64bits(clamp(p, -1, 1)))
}

// Position returns the last position set.
func (f *SweepFilter) Position() float64 {
	return math.Float64frombits(f.position.Load())
}

// Mode returns the filter type currently applied. Render goroutine only.
func (f *SweepFilter) Mode() SweepMode {
	return f.mode
}

func (f *SweepFilter) UpdateBlock(frames int) {
	p := f.Position()
	mode := SweepModeFor(p)
	if mode == SweepBypass {
		if f.mode != SweepBypass {
			f.mode = SweepBypass
			f.section.reset()
		}
		f.cutoff.Reset(f.nyquist)
		f.applied = f.cutoff.Value()
		return
	}
	f.cutoff.SetTarget(SweepCutoff(p, f.nyquist), smooth.DefaultTimeConstant)
	freq := f.cutoff.Advance(frames)
	if mode == f.mode && freq == f.applied {
		return
	}
	f.mode = mode
	f.applied = freq
	f.section.set(f.design())
}

func (f *SweepFilter) Process(l, r float32) (float32, float32) {
	if f.mode == SweepBypass {
		return l, r
	}
	return f.section.process(l, r)
}

func (f *SweepFilter) Reset() {
	f.section.reset()
}

// Coefficients returns the design currently applied. Render goroutine only.
func (f *SweepFilter) Coefficients() biquad.Coefficients {
	return f.section.coefficients()
}

func (f *SweepFilter) design() biquad.Coefficients {
	freq := DesignFrequency(f.applied, f.sampleRate)
	switch f.mode {
	case SweepLowpass:
		return design.Lowpass(freq, SweepQ, f.sampleRate)
	case SweepHighpass:
		return design.Highpass(freq, SweepQ, f.sampleRate)
	default:
		return passthrough
	}
}
