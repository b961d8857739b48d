// Package bpm estimates the tempo of a decoded track from the low-frequency
// onsets of its first channel.
package bpm

import (
	"context"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

const (
	// CutoffHz and Q shape the lowpass that isolates kick and bass energy.
	CutoffHz = 150.0
	Q        = 1.0

	// PeakThreshold is the filtered level, in full scale, a peak must exceed.
	PeakThreshold = 0.3

	// ClusterTolerance is the largest distance, in seconds, between an
	// interval and a cluster mean for the interval to join that cluster.
	ClusterTolerance = 0.01

	MinBPM = 80.0
	MaxBPM = 160.0
)

// checkEvery is how many samples are scanned between context checks.
const checkEvery = 1 << 16

// Estimate is the result of one analysis run.
type Estimate struct {
	// Intervals holds the time between consecutive peaks, in seconds.
	Intervals []float64
	// Dominant is the mean of the largest interval cluster, 0 if none.
	Dominant float64
	// BPM is the rounded, octave-folded tempo. 0 means undetermined.
	BPM int
}

type cluster struct {
	mean  float64
	count int
}

// Analyze runs the estimator over samples. It returns ctx.Err() if the
// context is cancelled before the scan completes; any finite input yields
// an Estimate, possibly with BPM 0.
func Analyze(ctx context.Context, samples []float32, sampleRate int) (Estimate, error) {
	var est Estimate
	if sampleRate <= 0 || len(samples) < 3 {
		return est, nil
	}
	sr := float64(sampleRate)
	// Low sample rates pull the cutoff under Nyquist.
	lp := biquad.NewSection(design.Lowpass(min(CutoffHz, 0.4999*sr), Q, sr))

	// Three-sample window over the filtered stream: prev, cur, next.
	prev := lp.ProcessSample(float64(samples[0]))
	cur := lp.ProcessSample(float64(samples[1]))
	lastPeak := -1.0
	for i := 2; i < len(samples); i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Estimate{}, err
			}
		}
		next := lp.ProcessSample(float64(samples[i]))
		if cur > PeakThreshold && cur > prev && cur > next {
			t := float64(i-1) / sr
			if lastPeak >= 0 {
				est.Intervals = append(est.Intervals, t-lastPeak)
			}
			lastPeak = t
		}
		prev, cur = cur, next
	}

	est.Dominant = dominantInterval(est.Intervals)
	if est.Dominant <= 0 {
		return est, nil
	}
	bpm := Fold(60 / est.Dominant)
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return est, nil
	}
	est.BPM = int(math.Round(bpm))
	return est, nil
}

// Detect returns only the BPM of Analyze.
func Detect(ctx context.Context, samples []float32, sampleRate int) (int, error) {
	est, err := Analyze(ctx, samples, sampleRate)
	return est.BPM, err
}

// Fold doubles or halves bpm until it lies in [MinBPM, MaxBPM]. Values that
// are not positive are returned unchanged.
func Fold(bpm float64) float64 {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return bpm
	}
	for bpm < MinBPM {
		bpm *= 2
	}
	for bpm > MaxBPM {
		bpm /= 2
	}
	return bpm
}

// dominantInterval clusters intervals by running mean and returns the mean
// of the most populated cluster. An interval joins the first cluster within
// tolerance. Ties resolve to the earliest cluster.
func dominantInterval(intervals []float64) float64 {
	var clusters []cluster
	for _, iv := range intervals {
		joined := false
		for k := range clusters {
			c := &clusters[k]
			if math.Abs(c.mean-iv) < ClusterTolerance {
				c.mean = (c.mean*float64(c.count) + iv) / float64(c.count+1)
				c.count++
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, cluster{mean: iv, count: 1})
		}
	}
	best := -1
	for k, c := range clusters {
		if best < 0 || c.count > clusters[best].count {
			best = k
		}
	}
	if best < 0 {
		return 0
	}
	return clusters[best].mean
}
