// Package audio connects a SampleSource to the platform output device.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// SampleSource renders interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// StreamReader adapts a SampleSource to the little-endian float32 byte
// stream the device reads. Samples are hard-limited to [-1, 1].
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
	frames atomic.Int64
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, v := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(limit(v)))
	}
	r.frames.Add(int64(frames))
	return frames * 8, nil
}

// Frames returns the number of frames rendered so far.
func (r *StreamReader) Frames() int64 {
	return r.frames.Load()
}

func (r *StreamReader) Close() error { return nil }

func limit(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	case v != v:
		return 0
	}
	return v
}

// Player plays one SampleSource on the shared device context.
type Player struct {
	player *ebitaudio.Player
	reader *StreamReader
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// DefaultBufferSize is the device buffer length. Control changes reach the
// listener after at most this much audio.
const DefaultBufferSize = 50 * time.Millisecond

func NewPlayer(sampleRate int, source SampleSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	pl.SetBufferSize(DefaultBufferSize)
	return &Player{
		player: pl,
		reader: reader,
	}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }

func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns the current playback position (what the listener actually hears).
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

// Latency returns how far rendering runs ahead of the listener.
func (p *Player) Latency(sampleRate int) time.Duration {
	rendered := time.Duration(p.reader.Frames()) * time.Second / time.Duration(sampleRate)
	if d := rendered - p.player.Position(); d > 0 {
		return d
	}
	return 0
}

func (p *Player) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
