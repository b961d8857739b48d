package deckmix

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	vecmath "github.com/cwbudde/algo-vecmath"

	intfx "github.com/cbegin/deckmix-go/internal/effects"
	"github.com/cbegin/deckmix-go/internal/smooth"
)

// InputSource is a continuous live input, such as a microphone stream. It
// fills dst with interleaved stereo and must not block.
type InputSource interface {
	Process(dst []float32)
}

// MicOpener acquires the live input. It is called when the microphone is
// switched on and no input is open yet.
type MicOpener func() (InputSource, error)

type inputHolder struct {
	src InputSource
}

// defaultMicEchoTime is the mic echo time control until it is moved.
const defaultMicEchoTime = 0.5

// micChain is input -> on-air gate -> echo -> mic volume.
type micChain struct {
	input  atomic.Pointer[inputHolder]
	onAir  *intfx.Gain
	echo   *intfx.Echo
	volume *intfx.Gain
	chain  *intfx.Chain
	buf    []float32
}

func newMicChain(sampleRate, frames int) *micChain {
	m := &micChain{
		onAir:  intfx.NewGain(sampleRate, 0),
		echo:   intfx.NewEcho(sampleRate, 0, defaultMicEchoTime),
		volume: intfx.NewGain(sampleRate, 0),
		buf:    make([]float32, frames*2),
	}
	m.chain = intfx.NewChain(m.onAir, m.echo, m.volume)
	return m
}

func (m *micChain) render(dst []float32) {
	h := m.input.Load()
	if h == nil {
		return
	}
	buf := m.buf[:len(dst)]
	h.src.Process(buf)
	m.chain.UpdateBlock(len(dst) / 2)
	for i := 0; i+1 < len(buf); i += 2 {
		l, r := m.chain.Process(buf[i], buf[i+1])
		dst[i] += l
		dst[i+1] += r
	}
}

// MasterBus sums the crossfaded decks and the microphone, adds the reverb
// send and applies the master gain.
type MasterBus struct {
	mu       sync.Mutex
	openMic  MicOpener
	micOn    bool
	micVol   float64
	micMix   float64
	micTime  float64
	reverbAt float64
	volume   float64

	master *smooth.Param
	wet    *smooth.Param
	reverb *intfx.ConvolutionReverb
	mic    *micChain

	// Render goroutine scratch.
	reverbLive bool
	wetL, wetR []float64
	ramp       []float64
}

func newMasterBus(sampleRate, frames int, seed uint64, openMic MicOpener) (*MasterBus, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ir := intfx.NoiseImpulse(sampleRate, intfx.ReverbSeconds, intfx.ReverbDecay, rng)
	intfx.NormalizeImpulse(ir, sampleRate)
	rev, err := intfx.NewConvolutionReverb(ir, intfx.DefaultPartition)
	if err != nil {
		return nil, fmt.Errorf("deckmix: master reverb: %w", err)
	}
	return &MasterBus{
		openMic: openMic,
		micTime: defaultMicEchoTime,
		volume:  1,
		master:  smooth.New(sampleRate, 1),
		wet:     smooth.New(sampleRate, 0),
		reverb:  rev,
		mic:     newMicChain(sampleRate, frames),
		wetL:    make([]float64, frames),
		wetR:    make([]float64, frames),
		ramp:    make([]float64, frames),
	}, nil
}

// SetVolume sets the master gain, 0 to 1.
func (m *MasterBus) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = clamp01(v)
	m.master.SetTarget(m.volume, smooth.DefaultTimeConstant)
}

// SetReverb sets the reverb send level, 0 to 1. The dry path stays at unity.
func (m *MasterBus) SetReverb(amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reverbAt = clamp01(amount)
	m.wet.SetTarget(m.reverbAt, smooth.DefaultTimeConstant)
}

func (m *MasterBus) SetMicVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.micVol = clamp01(v)
	m.mic.volume.Set(m.micVol)
}

func (m *MasterBus) SetMicEchoMix(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.micMix = clamp01(v)
	m.mic.echo.SetMix(m.micMix)
}

func (m *MasterBus) SetMicEchoTime(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.micTime = clamp01(v)
	m.mic.echo.SetTime(m.micTime)
}

// SetMicOnAir switches the microphone. The input is opened on first use; if
// that fails the microphone stays off and a later call retries.
func (m *MasterBus) SetMicOnAir(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setMicLocked(on)
}

// ToggleMic flips the microphone state.
func (m *MasterBus) ToggleMic() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setMicLocked(!m.micOn)
}

func (m *MasterBus) setMicLocked(on bool) error {
	if on && m.mic.input.Load() == nil {
		if m.openMic == nil {
			return ErrMicUnavailable
		}
		src, err := m.openMic()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMicUnavailable, err)
		}
		if src == nil {
			return ErrMicUnavailable
		}
		m.mic.input.Store(&inputHolder{src: src})
	}
	m.micOn = on
	if on {
		m.mic.onAir.Set(1)
	} else {
		m.mic.onAir.Set(0)
	}
	return nil
}

// MicOnAir reports whether the microphone is switched on.
func (m *MasterBus) MicOnAir() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.micOn
}

// MasterStatus is a snapshot of the master controls.
type MasterStatus struct {
	Volume      float64
	Reverb      float64
	MicOnAir    bool
	MicVolume   float64
	MicEchoMix  float64
	MicEchoTime float64
}

func (m *MasterBus) Status() MasterStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MasterStatus{
		Volume:      m.volume,
		Reverb:      m.reverbAt,
		MicOnAir:    m.micOn,
		MicVolume:   m.micVol,
		MicEchoMix:  m.micMix,
		MicEchoTime: m.micTime,
	}
}

// closeInput releases the microphone input if it can be closed.
func (m *MasterBus) closeInput() error {
	h := m.mic.input.Swap(nil)
	if h == nil {
		return nil
	}
	if c, ok := h.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// process mixes the microphone into the deck sum in buf, adds the reverb
// send and applies the master gain. Render goroutine only.
func (m *MasterBus) process(buf []float32) {
	m.mic.render(buf)
	frames := len(buf) / 2

	wetIdle := m.wet.Settled() && m.wet.Value() == 0
	if wetIdle {
		if m.reverbLive {
			m.reverb.Reset()
			m.reverbLive = false
		}
	} else {
		m.reverbLive = true
		wetL, wetR, ramp := m.wetL[:frames], m.wetR[:frames], m.ramp[:frames]
		for i := 0; i < frames; i++ {
			wetL[i], wetR[i] = float64(buf[2*i]), float64(buf[2*i+1])
		}
		if err := m.reverb.ProcessBlock(wetL, wetR); err != nil {
			clear(wetL)
			clear(wetR)
		}
		m.wet.Fill(ramp)
		vecmath.MulBlockInPlace(wetL, ramp)
		vecmath.MulBlockInPlace(wetR, ramp)
		for i := 0; i < frames; i++ {
			buf[2*i] += float32(wetL[i])
			buf[2*i+1] += float32(wetR[i])
		}
	}

	for i := 0; i+1 < len(buf); i += 2 {
		g := float32(m.master.Next())
		buf[i] *= g
		buf[i+1] *= g
	}
}
