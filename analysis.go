package deckmix

import (
	"context"
	"errors"

	intbpm "github.com/cbegin/deckmix-go/internal/bpm"
)

// EstimateFunc computes the tempo of mono samples. It returns 0 when the
// tempo cannot be determined and should return early when ctx is done.
type EstimateFunc func(ctx context.Context, samples []float32, sampleRate int) (float64, error)

// EstimateBPM is the default EstimateFunc.
func EstimateBPM(ctx context.Context, samples []float32, sampleRate int) (float64, error) {
	bpm, err := intbpm.Detect(ctx, samples, sampleRate)
	return float64(bpm), err
}

// BPMCache stores analysis results by track content key.
type BPMCache interface {
	LookupBPM(ctx context.Context, key string) (bpm float64, ok bool, err error)
	StoreBPM(ctx context.Context, key string, bpm float64) error
}

// startAnalysisLocked runs tempo analysis for t in a new goroutine. The
// result is applied only if id still names the loaded track.
func (d *Deck) startAnalysisLocked(t *Track, id string) {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.analysis.Add(1)
	go func() {
		defer d.analysis.Done()
		defer cancel()
		bpm, err := d.e.analyze(ctx, t)
		d.finishAnalysis(id, bpm, err)
	}()
}

func (e *Engine) analyze(ctx context.Context, t *Track) (float64, error) {
	if e.cache != nil && t.Key != "" {
		bpm, ok, err := e.cache.LookupBPM(ctx, t.Key)
		switch {
		case err != nil:
			e.logger.Printf("WARN bpm cache lookup %s: %v", t.Key, err)
		case ok:
			return bpm, nil
		}
	}
	bpm, err := e.estimate(ctx, t.Channels[0], t.SampleRate)
	if err != nil {
		return 0, err
	}
	if e.cache != nil && t.Key != "" && bpm > 0 {
		if err := e.cache.StoreBPM(ctx, t.Key, bpm); err != nil {
			e.logger.Printf("WARN bpm cache store %s: %v", t.Key, err)
		}
	}
	return bpm, nil
}

func (d *Deck) finishAnalysis(id string, bpm float64, err error) {
	d.mu.Lock()
	if id != d.trackID {
		d.mu.Unlock()
		if !errors.Is(err, context.Canceled) {
			d.e.logger.Printf("deck %d: discarding bpm %.1f for replaced track %s", d.index, bpm, id)
		}
		return
	}
	d.detecting = false
	// Cancellation only comes from Close, which drops the result.
	if errors.Is(err, context.Canceled) {
		d.mu.Unlock()
		return
	}
	if err != nil {
		d.e.logger.Printf("WARN deck %d: bpm analysis: %v", d.index, err)
		bpm = 0
	}
	if !(bpm > 0) {
		bpm = 0
	}
	d.originalBpm = bpm
	d.currentBpm = bpm * d.rate
	d.mu.Unlock()

	d.e.emit(Event{Kind: EventBPMDetected, Deck: d.index, TrackID: id, BPM: bpm})
}
