package deckmix

import (
	"github.com/cbegin/deckmix-go/internal/smooth"
)

// voice plays one Track from the start at a smoothed rate. A voice is
// created by Play and thrown away by Stop or at the end of the buffer; it is
// never restarted.
type voice struct {
	left, right []float32
	frames      int
	pos         float64
	// step converts the playback rate from track frames to output frames.
	step float64
	rate *smooth.Param
}

func newVoice(t *Track, outputRate int, rate float64) *voice {
	v := &voice{
		left:   t.Channels[0],
		right:  t.Channels[0],
		frames: t.Frames(),
		step:   float64(t.SampleRate) / float64(outputRate),
		rate:   smooth.New(outputRate, rate),
	}
	if len(t.Channels) > 1 {
		v.right = t.Channels[1]
	}
	return v
}

// setRate ramps to a new playback rate. Called with the owning deck locked.
func (v *voice) setRate(rate float64) {
	v.rate.SetTarget(rate, smooth.DefaultTimeConstant)
}

// render writes interleaved stereo into dst using linear interpolation
// between track frames. It reports whether the end of the buffer was reached;
// frames past the end are silent.
func (v *voice) render(dst []float32) bool {
	for i := 0; i+1 < len(dst); i += 2 {
		idx := int(v.pos)
		if idx >= v.frames {
			clear(dst[i:])
			return true
		}
		frac := float32(v.pos - float64(idx))
		l0, r0 := v.left[idx], v.right[idx]
		var l1, r1 float32
		if idx+1 < v.frames {
			l1, r1 = v.left[idx+1], v.right[idx+1]
		}
		dst[i] = l0 + (l1-l0)*frac
		dst[i+1] = r0 + (r1-r0)*frac
		v.pos += v.rate.Next() * v.step
	}
	return int(v.pos) >= v.frames
}
