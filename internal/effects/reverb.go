package effects

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/cwbudde/algo-dsp/dsp/conv"
)

// DefaultPartition is the smallest convolution block in samples. It is also
// the latency of the reverb output.
const DefaultPartition = 512

// maxPartitionOrder caps the largest partition at 8192 samples.
const maxPartitionOrder = 13

// ConvolutionReverb convolves each input channel with its own impulse
// response channel. Output lags input by one partition.
type ConvolutionReverb struct {
	channels  [2]*conv.PartitionedConvolution
	partition int

	silentRun int
	idleAfter int
	idle      bool
}

// NewConvolutionReverb builds a stereo convolver. A mono ir is used for
// both channels. partition must be a power of two.
func NewConvolutionReverb(ir [][]float64, partition int) (*ConvolutionReverb, error) {
	if len(ir) == 0 || len(ir[0]) == 0 {
		return nil, errors.New("reverb: empty impulse response")
	}
	if partition <= 0 {
		partition = DefaultPartition
	}
	if partition&(partition-1) != 0 || partition < 2 {
		return nil, fmt.Errorf("reverb: partition %d is not a power of two", partition)
	}
	order := bits.TrailingZeros(uint(partition))
	r := &ConvolutionReverb{partition: partition}
	irLen := 0
	for ch := range r.channels {
		src := ir[0]
		if ch < len(ir) && len(ir[ch]) > 0 {
			src = ir[ch]
		}
		irLen = max(irLen, len(src))
		c, err := conv.NewPartitionedConvolution(src, order, max(order, maxPartitionOrder))
		if err != nil {
			return nil, fmt.Errorf("reverb: channel %d: %w", ch, err)
		}
		r.channels[ch] = c
	}
	r.idleAfter = irLen + 2*partition
	return r, nil
}

// Latency returns the output delay in samples.
func (r *ConvolutionReverb) Latency() int {
	return r.partition
}

// Idle reports whether the convolver has skipped work because its input and
// tail are silent.
func (r *ConvolutionReverb) Idle() bool {
	return r.idle
}

// ProcessBlock convolves l and r in place. Both slices must have the same
// length.
func (r *ConvolutionReverb) ProcessBlock(l, rr []float64) error {
	if len(l) != len(rr) {
		return fmt.Errorf("reverb: channel lengths %d and %d differ", len(l), len(rr))
	}
	silent := isSilent(l) && isSilent(rr)
	// Everything still inside the convolvers is silence, so the output is
	// exactly zero for the whole block.
	if silent && r.silentRun >= r.idleAfter {
		r.idle = true
		clear(l)
		clear(rr)
		return nil
	}
	if silent {
		r.silentRun += len(l)
	} else {
		r.silentRun = 0
	}
	if r.idle {
		r.idle = false
		for _, c := range r.channels {
			c.Reset()
		}
	}
	if err := r.channels[0].ProcessBlock(l, l); err != nil {
		return fmt.Errorf("reverb: %w", err)
	}
	if err := r.channels[1].ProcessBlock(rr, rr); err != nil {
		return fmt.Errorf("reverb: %w", err)
	}
	return nil
}

func (r *ConvolutionReverb) Reset() {
	for _, c := range r.channels {
		c.Reset()
	}
	r.silentRun = 0
	r.idle = false
}

func isSilent(buf []float64) bool {
	for _, v := range buf {
		if v != 0 {
			return false
		}
	}
	return true
}
