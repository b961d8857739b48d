package effects

import (
	"github.com/cbegin/deckmix-go/internal/smooth"
	"github.com/cwbudde/algo-dsp/dsp/delay"
)

const (
	// MaxEchoSeconds is the delay reached at time control 1.
	MaxEchoSeconds = 2.0
	// MaxEchoFeedback is the feedback reached at time control 1.
	MaxEchoFeedback = 0.9
)

// EchoDelaySeconds maps the normalized time control to a delay length.
func EchoDelaySeconds(timeNorm float64) float64 {
	return clamp(timeNorm, 0, 1) * MaxEchoSeconds
}

// EchoFeedback maps the normalized time control to the feedback gain.
// Feedback follows the delay time: longer echoes repeat more.
func EchoFeedback(timeNorm float64) float64 {
	return clamp(timeNorm, 0, 1) * MaxEchoFeedback
}

// Echo is a parallel wet/dry delay send. The wet gain feeds the delay line,
// the line output is summed with the dry path, and the line feeds back into
// itself.
type Echo struct {
	lineL, lineR *delay.Line
	sampleRate   float64

	dry      *smooth.Param
	wet      *smooth.Param
	delay    *smooth.Param // seconds
	feedback *smooth.Param
}

// NewEcho creates the echo with mix and time controls in [0, 1].
func NewEcho(sampleRate int, mix, timeNorm float64) *Echo {
	// Hermite reads need three samples of headroom past the longest delay.
	size := max(0, int(MaxEchoSeconds*float64(sampleRate))) + 4
	lineL, _ := delay.New(size)
	lineR, _ := delay.New(size)
	mix = clamp(mix, 0, 1)
	return &Echo{
		lineL:      lineL,
		lineR:      lineR,
		sampleRate: float64(sampleRate),
		dry:        smooth.New(sampleRate, 1-mix),
		wet:        smooth.New(sampleRate, mix),
		delay:      smooth.New(sampleRate, EchoDelaySeconds(timeNorm)),
		feedback:   smooth.New(sampleRate, EchoFeedback(timeNorm)),
	}
}

// SetMix ramps the dry gain to 1-mix and the wet gain to mix.
func (e *Echo) SetMix(mix float64) {
	mix = clamp(mix, 0, 1)
	e.dry.SetTarget(1-mix, smooth.DefaultTimeConstant)
	e.wet.SetTarget(mix, smooth.DefaultTimeConstant)
}

// SetTime ramps the delay length and the coupled feedback gain.
func (e *Echo) SetTime(timeNorm float64) {
	e.delay.SetTarget(EchoDelaySeconds(timeNorm), smooth.DefaultTimeConstant)
	e.feedback.SetTarget(EchoFeedback(timeNorm), smooth.DefaultTimeConstant)
}

// Process reads the line before writing so the loop is at least one sample
// long.
func (e *Echo) Process(l, r float32) (float32, float32) {
	dry := e.dry.Next()
	wet := e.wet.Next()
	fb := e.feedback.Next()
	d := max(1, e.delay.Next()*e.sampleRate)

	delL := e.lineL.ReadFractional(d)
	delR := e.lineR.ReadFractional(d)
	e.lineL.Write(float64(l)*wet + delL*fb)
	e.lineR.Write(float64(r)*wet + delR*fb)
	return float32(float64(l)*dry + delL), float32(float64(r)*dry + delR)
}

func (e *Echo) Reset() {
	e.lineL.Reset()
	e.lineR.Reset()
}
