package main

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/cbegin/deckmix-go"
	"github.com/cbegin/deckmix-go/internal/decode"
)

// loopSource plays a decoded file over and over as a live input.
type loopSource struct {
	left, right []float32
	pos         int
}

func (s *loopSource) Process(dst []float32) {
	for i := 0; i+1 < len(dst); i += 2 {
		dst[i], dst[i+1] = s.left[s.pos], s.right[s.pos]
		s.pos++
		if s.pos == len(s.left) {
			s.pos = 0
		}
	}
}

// fileMicrophone opens path on demand. Decoding happens when the
// microphone is first switched on, so a bad file surfaces as an unavailable
// input rather than a startup failure.
func fileMicrophone(path string, sampleRate int) deckmix.MicOpener {
	return func() (deckmix.InputSource, error) {
		pcm, _, err := decode.File(path)
		if err != nil {
			return nil, err
		}
		if pcm.SampleRate != sampleRate {
			log.Printf("WARN mic file %s is %d Hz, output is %d Hz", filepath.Base(path), pcm.SampleRate, sampleRate)
		}
		src := &loopSource{left: pcm.Channels[0], right: pcm.Channels[0]}
		if len(pcm.Channels) > 1 {
			src.right = pcm.Channels[1]
		}
		if len(src.left) == 0 {
			return nil, fmt.Errorf("mic file %s is empty", path)
		}
		return src, nil
	}
}
