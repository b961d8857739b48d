package deckmix

import "fmt"

// Track is a decoded PCM buffer. A deck takes ownership of the Track on Load
// and never modifies it; callers must not modify it afterwards either.
type Track struct {
	// Channels holds one sample slice per channel, all the same length.
	// Only the first two channels are played; tempo analysis reads the first.
	Channels   [][]float32
	SampleRate int
	// Name is shown in deck status.
	Name string
	// Key identifies the content for the analysis cache. Empty disables
	// caching for this track.
	Key string
}

// Frames returns the number of sample frames per channel.
func (t *Track) Frames() int {
	if t == nil || len(t.Channels) == 0 {
		return 0
	}
	return len(t.Channels[0])
}

// Duration returns the track length in seconds.
func (t *Track) Duration() float64 {
	if t == nil || t.SampleRate <= 0 {
		return 0
	}
	return float64(t.Frames()) / float64(t.SampleRate)
}

func (t *Track) validate() error {
	if t == nil || len(t.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidTrack)
	}
	if t.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidTrack, t.SampleRate)
	}
	n := len(t.Channels[0])
	if n == 0 {
		return fmt.Errorf("%w: empty buffer", ErrInvalidTrack)
	}
	for i, ch := range t.Channels[1:] {
		if len(ch) != n {
			return fmt.Errorf("%w: channel %d has %d frames, want %d", ErrInvalidTrack, i+1, len(ch), n)
		}
	}
	return nil
}
