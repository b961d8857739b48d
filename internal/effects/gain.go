package effects

import "github.com/cbegin/deckmix-go/internal/smooth"

// Gain scales both channels by a smoothed linear gain.
type Gain struct {
	gain *smooth.Param
}

// NewGain creates a gain stage resting at initial.
func NewGain(sampleRate int, initial float64) *Gain {
	return &Gain{gain: smooth.New(sampleRate, initial)}
}

// Set ramps the gain to v.
func (g *Gain) Set(v float64) {
	g.gain.SetTarget(v, smooth.DefaultTimeConstant)
}

// Target returns the scheduled gain.
func (g *Gain) Target() float64 {
	return g.gain.Target()
}

func (g *Gain) Process(l, r float32) (float32, float32) {
	k := float32(g.gain.Next())
	return l * k, r * k
}

func (g *Gain) Reset() {}
