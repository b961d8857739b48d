package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

type rampSource struct {
	calls int
}

func (s *rampSource) Process(dst []float32) {
	s.calls++
	for i := range dst {
		dst[i] = float32(i) * 0.5
	}
}

func TestStreamReaderEncodesAndLimits(t *testing.T) {
	src := &rampSource{}
	r := NewStreamReader(src)
	p := make([]byte, 4*8+3)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 32 {
		t.Fatalf("read %d bytes, want 32", n)
	}
	want := []float32{0, 0.5, 1, 1, 1, 1, 1, 1}
	for i, w := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
		if got != w {
			t.Fatalf("sample %d = %v, want %v", i, got, w)
		}
	}
	if r.Frames() != 4 {
		t.Fatalf("frames = %d, want 4", r.Frames())
	}
}

func TestStreamReaderShortBuffer(t *testing.T) {
	src := &rampSource{}
	r := NewStreamReader(src)
	n, err := r.Read(make([]byte, 7))
	if n != 0 || err != nil {
		t.Fatalf("expected empty read, got %d, %v", n, err)
	}
	if src.calls != 0 {
		t.Fatal("source should not be asked for zero frames")
	}
}

func TestLimit(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct{ in, want float32 }{
		{0.25, 0.25}, {2, 1}, {-3, -1}, {nan, 0},
	}
	for _, tc := range tests {
		if got := limit(tc.in); got != tc.want {
			t.Errorf("limit(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
