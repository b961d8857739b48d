package deckmix

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	intfx "github.com/cbegin/deckmix-go/internal/effects"
)

// deckChain is the effect graph built for one loaded track:
// volume -> EQ -> sweep filter -> echo.
type deckChain struct {
	*intfx.Chain
	volume *intfx.Gain
	eq     *intfx.EQ3Band
	sweep  *intfx.SweepFilter
	echo   *intfx.Echo
}

// deckControls are the operator settings of a deck. They survive loads and
// seed every new chain.
type deckControls struct {
	volume    float64
	bass      float64 // normalized [-1, 1]
	mid       float64
	treble    float64
	filter    float64
	delayMix  float64
	delayTime float64
}

func defaultControls() deckControls {
	return deckControls{volume: 1, delayTime: 0.5}
}

// DeckStatus is a point-in-time view of a deck for display.
type DeckStatus struct {
	Index     int
	TrackName string
	TrackID   string
	Loaded    bool
	Playing   bool
	Detecting bool
	// OriginalBPM and CurrentBPM are 0 when no tempo is known.
	OriginalBPM float64
	CurrentBPM  float64
	PitchCents  float64
	Rate        float64

	Volume    float64
	Bass      float64
	Mid       float64
	Treble    float64
	Filter    float64
	DelayMix  float64
	DelayTime float64
}

// Deck owns one track, its effect chain and its transport. Control methods
// are safe for concurrent use. The render goroutine reaches the deck only
// through the chain and voice pointers, which are swapped whole.
type Deck struct {
	index int
	e     *Engine
	tap   *Tap

	mu          sync.Mutex
	track       *Track
	trackID     string
	originalBpm float64
	currentBpm  float64
	pitchCents  float64
	rate        float64
	detecting   bool
	controls    deckControls
	cancel      context.CancelFunc
	analysis    sync.WaitGroup

	chain atomic.Pointer[deckChain]
	voice atomic.Pointer[voice]
}

func newDeck(e *Engine, index int) *Deck {
	return &Deck{
		index:    index,
		e:        e,
		tap:      newTap(e.tapFrames),
		rate:     1,
		controls: defaultControls(),
	}
}

// Index returns the position of the deck in the engine.
func (d *Deck) Index() int { return d.index }

// Tap returns the post-chain signal tap of the deck.
func (d *Deck) Tap() *Tap { return d.tap }

// Load stops the deck, replaces its track and effect chain, forgets the old
// tempo and starts tempo analysis of the new track in the background. A
// result still pending for the previous track is discarded when it arrives.
func (d *Deck) Load(t *Track) error {
	if err := t.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.voice.Store(nil)
	d.chain.Store(d.buildChainLocked())

	d.track = t
	d.trackID = uuid.NewString()
	d.originalBpm = 0
	d.currentBpm = 0
	d.pitchCents = 0
	d.rate = 1
	d.detecting = true
	d.startAnalysisLocked(t, d.trackID)
	return nil
}

func (d *Deck) buildChainLocked() *deckChain {
	sr := d.e.sampleRate
	c := d.controls
	dc := &deckChain{
		volume: intfx.NewGain(sr, c.volume),
		eq:     intfx.NewEQ3Band(sr, intfx.EQGainDB(c.bass), intfx.EQGainDB(c.mid), intfx.EQGainDB(c.treble)),
		sweep:  intfx.NewSweepFilter(sr, c.filter),
		echo:   intfx.NewEcho(sr, c.delayMix, c.delayTime),
	}
	dc.Chain = intfx.NewChain(dc.volume, dc.eq, dc.sweep, dc.echo)
	return dc
}

// Play starts the track from the beginning, replacing any active voice. It
// is a no-op returning ErrNoTrack when nothing is loaded.
func (d *Deck) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playLocked()
}

func (d *Deck) playLocked() error {
	if d.track == nil || d.chain.Load() == nil {
		return ErrNoTrack
	}
	d.voice.Store(newVoice(d.track, d.e.sampleRate, d.rate))
	return nil
}

// Stop ends playback. The position is not kept.
func (d *Deck) Stop() {
	d.voice.Store(nil)
}

// TogglePlay stops a playing deck and starts a stopped one.
func (d *Deck) TogglePlay() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.voice.Load() != nil {
		d.voice.Store(nil)
		return nil
	}
	return d.playLocked()
}

// Playing reports whether a voice is active.
func (d *Deck) Playing() bool {
	return d.voice.Load() != nil
}

// SetPitchCents sets the pitch offset, clamped to one octave either way.
func (d *Deck) SetPitchCents(cents float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cents = clampCents(cents)
	d.pitchCents = cents
	d.setRateLocked(CentsToRate(cents))
}

// ResetPitch returns the deck to its original tempo.
func (d *Deck) ResetPitch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pitchCents = 0
	d.setRateLocked(1)
}

// applyRateLocked sets a rate computed from tempo data and derives the pitch
// from it.
func (d *Deck) applyRateLocked(rate float64) {
	d.pitchCents = RateToCents(rate)
	d.setRateLocked(rate)
}

func (d *Deck) setRateLocked(rate float64) {
	d.rate = rate
	if d.originalBpm > 0 {
		d.currentBpm = d.originalBpm * rate
	}
	if v := d.voice.Load(); v != nil {
		v.setRate(rate)
	}
}

// SetVolume sets the deck gain, 0 to 1.
func (d *Deck) SetVolume(v float64) {
	v = clamp01(v)
	d.update(func(c *deckControls) { c.volume = v }, func(dc *deckChain) { dc.volume.Set(v) })
}

// SetBass, SetMid and SetTreble take a normalized value in [-1, 1]: positive
// values boost up to +6 dB, negative values cut down to -24 dB.
func (d *Deck) SetBass(v float64) {
	v = clampUnit(v)
	d.update(func(c *deckControls) { c.bass = v }, func(dc *deckChain) { dc.eq.SetGainDB(intfx.BandBass, intfx.EQGainDB(v)) })
}

func (d *Deck) SetMid(v float64) {
	v = clampUnit(v)
	d.update(func(c *deckControls) { c.mid = v }, func(dc *deckChain) { dc.eq.SetGainDB(intfx.BandMid, intfx.EQGainDB(v)) })
}

func (d *Deck) SetTreble(v float64) {
	v = clampUnit(v)
	d.update(func(c *deckControls) { c.treble = v }, func(dc *deckChain) { dc.eq.SetGainDB(intfx.BandTreble, intfx.EQGainDB(v)) })
}

// SetFilter moves the sweep filter: negative is highpass, positive lowpass.
func (d *Deck) SetFilter(p float64) {
	p = clampUnit(p)
	d.update(func(c *deckControls) { c.filter = p }, func(dc *deckChain) { dc.sweep.SetPosition(p) })
}

func (d *Deck) SetDelayMix(m float64) {
	m = clamp01(m)
	d.update(func(c *deckControls) { c.delayMix = m }, func(dc *deckChain) { dc.echo.SetMix(m) })
}

// SetDelayTime sets the echo time, 0 to 1 for 0 to 2 seconds. Feedback
// follows.
func (d *Deck) SetDelayTime(t float64) {
	t = clamp01(t)
	d.update(func(c *deckControls) { c.delayTime = t }, func(dc *deckChain) { dc.echo.SetTime(t) })
}

func (d *Deck) update(set func(*deckControls), apply func(*deckChain)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set(&d.controls)
	if dc := d.chain.Load(); dc != nil {
		apply(dc)
	}
}

// Status returns a snapshot of the deck state.
func (d *Deck) Status() DeckStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := DeckStatus{
		Index:       d.index,
		TrackID:     d.trackID,
		Loaded:      d.track != nil,
		Playing:     d.voice.Load() != nil,
		Detecting:   d.detecting,
		OriginalBPM: d.originalBpm,
		CurrentBPM:  d.currentBpm,
		PitchCents:  d.pitchCents,
		Rate:        d.rate,
		Volume:      d.controls.volume,
		Bass:        d.controls.bass,
		Mid:         d.controls.mid,
		Treble:      d.controls.treble,
		Filter:      d.controls.filter,
		DelayMix:    d.controls.delayMix,
		DelayTime:   d.controls.delayTime,
	}
	if d.track != nil {
		s.TrackName = d.track.Name
	}
	return s
}

// render produces one block of the deck output into dst. Render goroutine
// only.
func (d *Deck) render(dst []float32) {
	dc := d.chain.Load()
	if dc == nil {
		clear(dst)
		return
	}
	if v := d.voice.Load(); v != nil {
		if v.render(dst) && d.voice.CompareAndSwap(v, nil) {
			d.e.emit(Event{Kind: EventPlaybackEnded, Deck: d.index})
		}
	} else {
		clear(dst)
	}
	dc.UpdateBlock(len(dst) / 2)
	for i := 0; i+1 < len(dst); i += 2 {
		dst[i], dst[i+1] = dc.Process(dst[i], dst[i+1])
	}
	d.tap.write(dst)
}

// close cancels analysis and waits for it to finish.
func (d *Deck) close() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()
	d.voice.Store(nil)
	d.analysis.Wait()
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
