package effects

import (
	"math"

	"github.com/cbegin/deckmix-go/internal/smooth"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// Band selects one of the three EQ bands.
type Band int

const (
	BandBass Band = iota
	BandMid
	BandTreble
)

const (
	BassFreq   = 320.0
	MidFreq    = 1000.0
	MidQ       = 0.5
	TrebleFreq = 3200.0

	// ShelfQ gives both shelves a unit slope.
	ShelfQ = math.Sqrt2 / 2

	MaxBoostDB = 6.0
	MaxCutDB   = 24.0
)

// EQGainDB maps a normalized control value in [-1, 1] to a band gain.
// Boost reaches +6 dB, cut reaches -24 dB.
func EQGainDB(v float64) float64 {
	v = clamp(v, -1, 1)
	if v > 0 {
		return v * MaxBoostDB
	}
	return v * MaxCutDB
}

// EQ3Band is a low shelf, peaking band and high shelf in series with
// smoothed gains.
type EQ3Band struct {
	sampleRate float64
	gains      [3]*smooth.Param
	applied    [3]float64
	sections   [3]*stereoSection
}

// NewEQ3Band creates the deck EQ with the given initial band gains in dB.
func NewEQ3Band(sampleRate int, bassDB, midDB, trebleDB float64) *EQ3Band {
	eq := &EQ3Band{sampleRate: float64(sampleRate)}
	for i, db := range [3]float64{bassDB, midDB, trebleDB} {
		db = clamp(db, -MaxCutDB, MaxBoostDB)
		eq.gains[i] = smooth.New(sampleRate, db)
		eq.applied[i] = eq.gains[i].Value()
		eq.sections[i] = newStereoSection(eq.design(Band(i), eq.applied[i]))
	}
	return eq
}

// SetGainDB ramps band to db, clamped to [-24, +6].
func (eq *EQ3Band) SetGainDB(band Band, db float64) {
	if band < BandBass || band > BandTreble {
		return
	}
	eq.gains[band].SetTarget(clamp(db, -MaxCutDB, MaxBoostDB), smooth.DefaultTimeConstant)
}

// GainDB returns the scheduled gain of band.
func (eq *EQ3Band) GainDB(band Band) float64 {
	if band < BandBass || band > BandTreble {
		return 0
	}
	return eq.gains[band].Target()
}

func (eq *EQ3Band) UpdateBlock(frames int) {
	for i, g := range eq.gains {
		db := g.Advance(frames)
		if db == eq.applied[i] {
			continue
		}
		eq.applied[i] = db
		eq.sections[i].set(eq.design(Band(i), db))
	}
}

func (eq *EQ3Band) Process(l, r float32) (float32, float32) {
	for _, s := range eq.sections {
		l, r = s.process(l, r)
	}
	return l, r
}

func (eq *EQ3Band) Reset() {
	for _, s := range eq.sections {
		s.reset()
	}
}

// Coefficients returns the design currently applied to band.
func (eq *EQ3Band) Coefficients(band Band) biquad.Coefficients {
	if band < BandBass || band > BandTreble {
		return passthrough
	}
	return eq.sections[band].coefficients()
}

func (eq *EQ3Band) design(band Band, db float64) biquad.Coefficients {
	sr := eq.sampleRate
	switch band {
	case BandBass:
		return design.LowShelf(DesignFrequency(BassFreq, sr), db, ShelfQ, sr)
	case BandMid:
		return design.Peak(DesignFrequency(MidFreq, sr), db, MidQ, sr)
	default:
		return design.HighShelf(DesignFrequency(TrebleFreq, sr), db, ShelfQ, sr)
	}
}
