// Package deckmix is a live multi-deck mixing engine. Decks play decoded
// PCM through a per-deck effect chain into a crossfader and a master bus
// with a reverb send and a microphone input. Tempo is estimated in the
// background and decks can be synced to each other.
package deckmix

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	intaudio "github.com/cbegin/deckmix-go/internal/audio"
)

// blockFrames is the control block size. Block-rate parameters such as
// filter coefficients are updated once per block.
const blockFrames = 128

// DefaultDecks is the deck count of a new engine.
const DefaultDecks = 2

type Option func(*engineConfig)

type engineConfig struct {
	logger     *log.Logger
	decks      int
	estimate   EstimateFunc
	cache      BPMCache
	openMic    MicOpener
	reverbSeed uint64
	seeded     bool
	law        CrossfadeLaw
	sampleTap  func([]float32)
	tapFrames  int
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger:    log.Default(),
		decks:     DefaultDecks,
		estimate:  EstimateBPM,
		tapFrames: DefaultTapFrames,
	}
}

// WithLogger sets the logger for warnings. The render path never logs.
func WithLogger(l *log.Logger) Option {
	return func(cfg *engineConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithDeckCount sets the number of decks. Even decks start on crossfader
// side A, odd decks on side B.
func WithDeckCount(n int) Option {
	return func(cfg *engineConfig) {
		cfg.decks = n
	}
}

// WithEstimator replaces the tempo estimator.
func WithEstimator(fn EstimateFunc) Option {
	return func(cfg *engineConfig) {
		if fn != nil {
			cfg.estimate = fn
		}
	}
}

// WithBPMCache stores and reuses tempo results for tracks with a Key.
func WithBPMCache(c BPMCache) Option {
	return func(cfg *engineConfig) {
		cfg.cache = c
	}
}

// WithMicrophone sets how the live input is opened.
func WithMicrophone(open MicOpener) Option {
	return func(cfg *engineConfig) {
		cfg.openMic = open
	}
}

// WithReverbSeed makes the reverb impulse response reproducible.
func WithReverbSeed(seed uint64) Option {
	return func(cfg *engineConfig) {
		cfg.reverbSeed = seed
		cfg.seeded = true
	}
}

// WithCrossfadeLaw sets the initial crossfader curve.
func WithCrossfadeLaw(law CrossfadeLaw) Option {
	return func(cfg *engineConfig) {
		cfg.law = law
	}
}

// WithSampleTap installs a callback invoked with each rendered stereo block
// of the master output. The callback runs on the audio thread; keep work
// brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *engineConfig) {
		cfg.sampleTap = tap
	}
}

// WithTapFrames sets the history length of the deck and master taps.
func WithTapFrames(n int) Option {
	return func(cfg *engineConfig) {
		cfg.tapFrames = n
	}
}

// Engine is the mixer. Control methods may be called from any goroutine;
// Process is the render entry point and is called by the output device or
// directly for offline use.
type Engine struct {
	sampleRate int
	logger     *log.Logger
	estimate   EstimateFunc
	cache      BPMCache
	tapFrames  int
	sampleTap  func([]float32)

	decks     []*Deck
	crossfade *CrossfadeBus
	master    *MasterBus
	masterTap *Tap
	events    atomic.Pointer[chan Event]

	mu     sync.Mutex
	device *intaudio.Player
	closed bool

	// Render goroutine scratch.
	renderMu sync.Mutex
	mix      []float32
	deckBuf  []float32
}

func NewEngine(sampleRate int, opts ...Option) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("deckmix: sampleRate must be positive")
	}
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.decks < 1 {
		return nil, fmt.Errorf("deckmix: deck count %d must be at least 1", cfg.decks)
	}
	if !cfg.seeded {
		cfg.reverbSeed = rand.Uint64()
	}
	e := &Engine{
		sampleRate: sampleRate,
		logger:     cfg.logger,
		estimate:   cfg.estimate,
		cache:      cfg.cache,
		tapFrames:  cfg.tapFrames,
		sampleTap:  cfg.sampleTap,
		crossfade:  newCrossfadeBus(sampleRate, cfg.decks, cfg.law),
		masterTap:  newTap(cfg.tapFrames),
		mix:        make([]float32, blockFrames*2),
		deckBuf:    make([]float32, blockFrames*2),
	}
	master, err := newMasterBus(sampleRate, blockFrames, cfg.reverbSeed, cfg.openMic)
	if err != nil {
		return nil, err
	}
	e.master = master
	e.decks = make([]*Deck, cfg.decks)
	for i := range e.decks {
		e.decks[i] = newDeck(e, i)
	}
	return e, nil
}

func (e *Engine) SampleRate() int { return e.sampleRate }

// DeckCount returns the number of decks.
func (e *Engine) DeckCount() int { return len(e.decks) }

// Deck returns deck i.
func (e *Engine) Deck(i int) (*Deck, error) {
	if i < 0 || i >= len(e.decks) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDeck, i)
	}
	return e.decks[i], nil
}

func (e *Engine) Crossfade() *CrossfadeBus { return e.crossfade }

func (e *Engine) Master() *MasterBus { return e.master }

// MasterTap returns the tap on the master output.
func (e *Engine) MasterTap() *Tap { return e.masterTap }

// SetMicOnAir switches the microphone, reporting acquisition failures as a
// warning and an EventMicUnavailable.
func (e *Engine) SetMicOnAir(on bool) error {
	return e.micResult(e.master.SetMicOnAir(on))
}

func (e *Engine) ToggleMic() error {
	return e.micResult(e.master.ToggleMic())
}

func (e *Engine) micResult(err error) error {
	if err != nil {
		e.logger.Printf("WARN microphone: %v", err)
		e.emit(Event{Kind: EventMicUnavailable, Deck: -1, Err: err})
	}
	return err
}

// Process renders interleaved stereo float32 into dst. It never blocks on
// control operations.
func (e *Engine) Process(dst []float32) {
	e.renderMu.Lock()
	defer e.renderMu.Unlock()
	for off := 0; off < len(dst); off += blockFrames * 2 {
		end := min(off+blockFrames*2, len(dst))
		e.renderBlock(dst[off:end])
	}
}

func (e *Engine) renderBlock(out []float32) {
	n := len(out)
	mix := e.mix[:n]
	clear(mix)
	buf := e.deckBuf[:n]
	for i, d := range e.decks {
		d.render(buf)
		e.crossfade.mix(i, mix, buf)
	}
	e.master.process(mix)
	copy(out, mix)
	e.masterTap.write(out)
	if e.sampleTap != nil {
		e.sampleTap(out)
	}
}

// Start opens the output device and begins playback of the engine output.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New("deckmix: engine closed")
	}
	if e.device != nil {
		return nil
	}
	device, err := intaudio.NewPlayer(e.sampleRate, e)
	if err != nil {
		return fmt.Errorf("deckmix: open output: %w", err)
	}
	e.device = device
	e.device.Play()
	return nil
}

// Close stops output, cancels pending analysis and releases the microphone.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	device := e.device
	e.device = nil
	e.mu.Unlock()

	var errs []error
	if device != nil {
		errs = append(errs, device.Stop())
	}
	for _, d := range e.decks {
		d.close()
	}
	errs = append(errs, e.master.closeInput())
	return errors.Join(errs...)
}
