package effects

import (
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

// maxDesignRatio keeps design frequencies strictly below Nyquist, where the
// designers fall back to zero coefficients.
const maxDesignRatio = 0.4999

// passthrough leaves the signal unchanged.
var passthrough = biquad.Coefficients{B0: 1}

// stereoSection runs one biquad design over two independent channel states.
type stereoSection struct {
	l, r *biquad.Section
}

func newStereoSection(c biquad.Coefficients) *stereoSection {
	return &stereoSection{l: biquad.NewSection(c), r: biquad.NewSection(c)}
}

// set swaps the coefficients of both channels and keeps their state.
func (s *stereoSection) set(c biquad.Coefficients) {
	s.l.Coefficients = c
	s.r.Coefficients = c
}

func (s *stereoSection) coefficients() biquad.Coefficients {
	return s.l.Coefficients
}

func (s *stereoSection) process(l, r float32) (float32, float32) {
	return float32(s.l.ProcessSample(float64(l))), float32(s.r.ProcessSample(float64(r)))
}

func (s *stereoSection) reset() {
	s.l.Reset()
	s.r.Reset()
}

// DesignFrequency limits freq to the range the biquad designers accept.
func DesignFrequency(freq, sampleRate float64) float64 {
	return clamp(freq, 1, sampleRate*maxDesignRatio)
}
