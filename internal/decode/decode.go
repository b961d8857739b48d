// Package decode reads audio files into per-channel float32 buffers.
package decode

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

var (
	ErrUnknownFormat = errors.New("decode: unknown audio format")
	ErrInvalidFile   = errors.New("decode: invalid audio file")
	ErrEmpty         = errors.New("decode: no audio frames")
)

// Format names a container.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatAIFF Format = "aiff"
	FormatMP3  Format = "mp3"
	FormatOgg  Format = "ogg"
)

// FormatFor picks the container from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV, nil
	case ".aif", ".aiff":
		return FormatAIFF, nil
	case ".mp3":
		return FormatMP3, nil
	case ".ogg", ".oga":
		return FormatOgg, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// PCM is decoded audio, one slice per channel.
type PCM struct {
	Channels   [][]float32
	SampleRate int
}

// Frames returns the number of frames per channel.
func (p *PCM) Frames() int {
	if len(p.Channels) == 0 {
		return 0
	}
	return len(p.Channels[0])
}

// File decodes the file at path and returns it with its content key.
func File(path string) (*PCM, string, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("decode: read %s: %w", path, err)
	}
	pcm, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return pcm, Key(data), nil
}

// Key returns the content key of encoded file bytes.
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Decode reads a whole stream of the given format.
func Decode(r io.ReadSeeker, format Format) (*PCM, error) {
	var (
		pcm *PCM
		err error
	)
	switch format {
	case FormatWAV:
		pcm, err = decodeWAV(r)
	case FormatAIFF:
		pcm, err = decodeAIFF(r)
	case FormatMP3:
		pcm, err = decodeMP3(r)
	case FormatOgg:
		pcm, err = decodeOgg(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if pcm.Frames() == 0 {
		return nil, ErrEmpty
	}
	return pcm, nil
}

func decodeWAV(r io.ReadSeeker) (*PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a PCM wav file", ErrInvalidFile)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	return fromIntBuffer(buf, int(dec.BitDepth), true)
}

func decodeAIFF(r io.ReadSeeker) (*PCM, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an aiff file", ErrInvalidFile)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("aiff: %w", err)
	}
	return fromIntBuffer(buf, int(dec.BitDepth), false)
}

// fromIntBuffer scales integer samples to [-1, 1). unsigned8 marks 8-bit
// data stored with an offset of 128, as in WAV.
func fromIntBuffer(buf *goaudio.IntBuffer, bitDepth int, unsigned8 bool) (*PCM, error) {
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidFile)
	}
	if bitDepth <= 0 {
		bitDepth = buf.SourceBitDepth
	}
	scale := fullScale(bitDepth)
	chans := buf.Format.NumChannels
	frames := len(buf.Data) / chans
	pcm := newPCM(chans, frames, buf.Format.SampleRate)
	for i := 0; i < frames; i++ {
		for c := 0; c < chans; c++ {
			v := buf.Data[i*chans+c]
			if unsigned8 && bitDepth == 8 {
				v -= 128
			}
			pcm.Channels[c][i] = float32(v) / scale
		}
	}
	return pcm, nil
}

func fullScale(bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return 128
	case 24:
		return 8388608
	case 32:
		return 2147483648
	default:
		return 32768
	}
}

// go-mp3 always produces 16-bit little-endian stereo.
func decodeMP3(r io.Reader) (*PCM, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	frames := len(raw) / 4
	pcm := newPCM(2, frames, dec.SampleRate())
	for i := 0; i < frames; i++ {
		b := raw[i*4:]
		pcm.Channels[0][i] = float32(int16(uint16(b[0])|uint16(b[1])<<8)) / 32768
		pcm.Channels[1][i] = float32(int16(uint16(b[2])|uint16(b[3])<<8)) / 32768
	}
	return pcm, nil
}

func decodeOgg(r io.Reader) (*PCM, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ogg: %w", err)
	}
	if format == nil || format.Channels <= 0 {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidFile)
	}
	chans := format.Channels
	frames := len(data) / chans
	pcm := newPCM(chans, frames, format.SampleRate)
	for i := 0; i < frames; i++ {
		for c := 0; c < chans; c++ {
			pcm.Channels[c][i] = data[i*chans+c]
		}
	}
	return pcm, nil
}

func newPCM(chans, frames, sampleRate int) *PCM {
	p := &PCM{Channels: make([][]float32, chans), SampleRate: sampleRate}
	for c := range p.Channels {
		p.Channels[c] = make([]float32, frames)
	}
	return p
}
