package effects

import (
	"math"
	"math/rand/v2"
)

const (
	ReverbSeconds = 1.5
	ReverbDecay   = 2.0

	// Loudness calibration applied to impulse responses before convolution.
	irGainCalibration = 0.00125
	irCalibrationRate = 44100.0
	irMinPower        = 0.000125
)

// NoiseImpulse synthesizes a stereo room response: per-channel independent
// white noise shaped by (1 - i/N)^decay.
func NoiseImpulse(sampleRate int, seconds, decay float64, rng *rand.Rand) [][]float64 {
	n := int(float64(sampleRate) * seconds)
	if n < 1 {
		n = 1
	}
	ir := make([][]float64, 2)
	for ch := range ir {
		data := make([]float64, n)
		for i := range data {
			data[i] = (rng.Float64()*2 - 1) * math.Pow(1-float64(i)/float64(n), decay)
		}
		ir[ch] = data
	}
	return ir
}

// NormalizeImpulse scales ir in place so its RMS power maps to a fixed
// calibrated level, independent of length and sample rate.
func NormalizeImpulse(ir [][]float64, sampleRate int) {
	var sum float64
	count := 0
	for _, ch := range ir {
		for _, v := range ch {
			sum += v * v
		}
		count += len(ch)
	}
	if count == 0 {
		return
	}
	power := math.Sqrt(sum / float64(count))
	if power < irMinPower || math.IsNaN(power) {
		power = irMinPower
	}
	scale := irGainCalibration / power
	if sampleRate > 0 {
		scale *= irCalibrationRate / float64(sampleRate)
	}
	for _, ch := range ir {
		for i := range ch {
			ch[i] *= scale
		}
	}
}
