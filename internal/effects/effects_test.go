package effects

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestEQGainDBAsymmetricMapping(t *testing.T) {
	tests := []struct {
		v, want float64
	}{
		{1, 6},
		{0.5, 3},
		{0, 0},
		{-0.5, -12},
		{-1, -24},
		{3, 6},
		{-3, -24},
	}
	for _, tc := range tests {
		if got := EQGainDB(tc.v); got != tc.want {
			t.Errorf("EQGainDB(%v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestEQ3BandFlatIsTransparent(t *testing.T) {
	eq := NewEQ3Band(48000, 0, 0, 0)
	eq.UpdateBlock(128)
	for i := 0; i < 2000; i++ {
		x := float32(math.Sin(2 * math.Pi * 440 * float64(i) / 48000))
		l, r := eq.Process(x, -x)
		if math.Abs(float64(l-x)) > 1e-5 || math.Abs(float64(r+x)) > 1e-5 {
			t.Fatalf("sample %d: flat EQ changed signal: in=%v out=%v,%v", i, x, l, r)
		}
	}
}

func TestEQ3BandBassKillAttenuatesLows(t *testing.T) {
	const sr = 48000
	flat := rmsOf(NewEQ3Band(sr, 0, 0, 0), 50, sr)
	killed := rmsOf(NewEQ3Band(sr, -24, 0, 0), 50, sr)
	if drop := 20 * math.Log10(flat/killed); drop < 15 {
		t.Fatalf("bass kill dropped a 50 Hz tone by %.1f dB, want > 15", drop)
	}
}

func TestEQ3BandGainRampsThroughBlocks(t *testing.T) {
	eq := NewEQ3Band(48000, 0, 0, 0)
	eq.SetGainDB(BandTreble, -24)
	if got := eq.GainDB(BandTreble); got != -24 {
		t.Fatalf("scheduled gain = %v, want -24", got)
	}
	eq.UpdateBlock(32)
	first := eq.applied[BandTreble]
	if first <= -24 || first >= 0 {
		t.Fatalf("after one block gain should be between 0 and -24, got %v", first)
	}
	for i := 0; i < 200; i++ {
		eq.UpdateBlock(32)
	}
	if got := eq.applied[BandTreble]; math.Abs(got+24) > 1e-3 {
		t.Fatalf("gain did not settle at -24, got %v", got)
	}
	eq.SetGainDB(BandTreble, 20)
	if got := eq.GainDB(BandTreble); got != MaxBoostDB {
		t.Fatalf("boost should clamp to %v, got %v", MaxBoostDB, got)
	}
}

func TestSweepCutoffEndpointsAndContinuity(t *testing.T) {
	const nyquist = 24000.0
	if got := SweepCutoff(1, nyquist); math.Abs(got-SweepMinFreq) > 1e-9 {
		t.Fatalf("lowpass end = %v, want %v", got, SweepMinFreq)
	}
	if got := SweepCutoff(-1, nyquist); math.Abs(got-SweepMinFreq) > 1e-9 {
		t.Fatalf("highpass end = %v, want %v", got, SweepMinFreq)
	}
	if got := SweepCutoff(0, nyquist); got != nyquist {
		t.Fatalf("center = %v, want %v", got, nyquist)
	}
	above := SweepCutoff(1e-9, nyquist)
	below := SweepCutoff(-1e-9, nyquist)
	if math.Abs(above-nyquist) > 1e-3 || math.Abs(below-nyquist) > 1e-3 {
		t.Fatalf("cutoff jumps at center: %v | %v | %v", below, nyquist, above)
	}
}

func TestSweepCutoffMonotonicPerBranch(t *testing.T) {
	const nyquist = 22050.0
	prev := SweepCutoff(0.001, nyquist)
	for p := 0.01; p <= 1.0001; p += 0.01 {
		f := SweepCutoff(p, nyquist)
		if f >= prev {
			t.Fatalf("lowpass cutoff not falling at p=%v: %v >= %v", p, f, prev)
		}
		prev = f
	}
	prev = SweepCutoff(-1, nyquist)
	for p := -0.99; p < 0; p += 0.01 {
		f := SweepCutoff(p, nyquist)
		if f <= prev {
			t.Fatalf("highpass cutoff not rising at p=%v: %v <= %v", p, f, prev)
		}
		prev = f
	}
}

func TestSweepModeFor(t *testing.T) {
	if SweepModeFor(0) != SweepBypass || SweepModeFor(0.2) != SweepLowpass || SweepModeFor(-0.2) != SweepHighpass {
		t.Fatal("unexpected sweep mode mapping")
	}
	if SweepLowpass.String() != "lowpass" || SweepBypass.String() != "bypass" {
		t.Fatal("unexpected mode names")
	}
}

func TestSweepFilterBypassIsTransparent(t *testing.T) {
	f := NewSweepFilter(48000, 0)
	f.UpdateBlock(64)
	for i := 0; i < 64; i++ {
		x := float32(i%7) / 7
		l, r := f.Process(x, x/2)
		if l != x || r != x/2 {
			t.Fatalf("bypass changed sample %d", i)
		}
	}
	if f.Mode() != SweepBypass {
		t.Fatalf("mode = %v, want bypass", f.Mode())
	}
}

func TestSweepFilterLowpassAttenuatesHighs(t *testing.T) {
	const sr = 48000
	f := NewSweepFilter(sr, 0.8)
	var sum float64
	n := 0
	for block := 0; block < 100; block++ {
		f.UpdateBlock(128)
		for i := 0; i < 128; i++ {
			idx := block*128 + i
			x := float32(math.Sin(2 * math.Pi * 5000 * float64(idx) / sr))
			l, _ := f.Process(x, x)
			if block >= 50 {
				sum += float64(l * l)
				n++
			}
		}
	}
	rms := math.Sqrt(sum / float64(n))
	if rms > 0.05 {
		t.Fatalf("lowpass at 0.8 left %v RMS of a 5 kHz tone", rms)
	}
	if f.Mode() != SweepLowpass {
		t.Fatalf("mode = %v, want lowpass", f.Mode())
	}
}

func TestSweepFilterReturnsToBypass(t *testing.T) {
	f := NewSweepFilter(48000, -0.5)
	f.UpdateBlock(64)
	if f.Mode() != SweepHighpass {
		t.Fatalf("mode = %v, want highpass", f.Mode())
	}
	f.SetPosition(0)
	f.UpdateBlock(64)
	if f.Mode() != SweepBypass {
		t.Fatalf("mode = %v, want bypass", f.Mode())
	}
	if l, _ := f.Process(0.25, 0); l != 0.25 {
		t.Fatalf("bypass output %v, want 0.25", l)
	}
}

func TestEchoFeedbackCoupledToTime(t *testing.T) {
	if got := EchoDelaySeconds(1); got != 2 {
		t.Fatalf("delay at 1 = %v, want 2", got)
	}
	if got := EchoFeedback(1); got != 0.9 {
		t.Fatalf("feedback at 1 = %v, want 0.9", got)
	}
	if got := EchoFeedback(0.5); got != 0.45 {
		t.Fatalf("feedback at 0.5 = %v, want 0.45", got)
	}
}

func TestEchoRepeatsWithFeedback(t *testing.T) {
	const sr = 8000
	e := NewEcho(sr, 1, 0.25) // 0.5 s, feedback 0.225
	out := make([]float32, 2*sr+10)
	for i := range out {
		in := float32(0)
		if i == 0 {
			in = 1
		}
		out[i], _ = e.Process(in, in)
	}
	if out[0] != 0 {
		t.Fatalf("fully wet echo leaked dry signal: %v", out[0])
	}
	if math.Abs(float64(out[4000])-1) > 1e-6 {
		t.Fatalf("first repeat = %v, want 1", out[4000])
	}
	if math.Abs(float64(out[8000])-0.225) > 1e-6 {
		t.Fatalf("second repeat = %v, want 0.225", out[8000])
	}
}

func TestEchoDryOnlyPassesInput(t *testing.T) {
	e := NewEcho(8000, 0, 0.5)
	for i := 0; i < 100; i++ {
		x := float32(i) / 100
		l, r := e.Process(x, -x)
		if l != x || r != -x {
			t.Fatalf("mix 0 changed sample %d: %v %v", i, l, r)
		}
	}
}

func TestNoiseImpulseEnvelope(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	ir := NoiseImpulse(1000, ReverbSeconds, ReverbDecay, rng)
	if len(ir) != 2 || len(ir[0]) != 1500 || len(ir[1]) != 1500 {
		t.Fatalf("unexpected impulse shape %d x %d", len(ir), len(ir[0]))
	}
	same := true
	for i := range ir[0] {
		env := math.Pow(1-float64(i)/1500, ReverbDecay)
		if math.Abs(ir[0][i]) > env+1e-12 || math.Abs(ir[1][i]) > env+1e-12 {
			t.Fatalf("sample %d exceeds decay envelope", i)
		}
		if ir[0][i] != ir[1][i] {
			same = false
		}
	}
	if same {
		t.Fatal("channels must use independent noise")
	}
}

func TestNormalizeImpulseCalibratesPower(t *testing.T) {
	ir := [][]float64{{1, -1, 1, -1}, {1, -1, 1, -1}}
	NormalizeImpulse(ir, 44100)
	if math.Abs(ir[0][0]-irGainCalibration) > 1e-12 {
		t.Fatalf("unit-power impulse scaled to %v, want %v", ir[0][0], irGainCalibration)
	}
}

func TestConvolutionReverbMatchesDirectConvolution(t *testing.T) {
	const partition = 64
	rng := rand.New(rand.NewPCG(7, 9))
	ir := [][]float64{make([]float64, 300), make([]float64, 300)}
	for ch := range ir {
		for i := range ir[ch] {
			ir[ch][i] = rng.Float64()*2 - 1
		}
	}
	input := make([]float64, 1000)
	for i := range input {
		input[i] = rng.Float64()*2 - 1
	}

	rev, err := NewConvolutionReverb(ir, partition)
	if err != nil {
		t.Fatalf("new reverb: %v", err)
	}
	total := len(input) + len(ir[0]) + 2*partition
	gotL := make([]float64, total)
	gotR := make([]float64, total)
	for n := range input {
		gotL[n], gotR[n] = input[n], -input[n]
	}
	// Uneven block sizes exercise the internal partition buffering.
	for off, size := 0, 37; off < total; off, size = off+size, size%97+23 {
		end := min(off+size, total)
		if err := rev.ProcessBlock(gotL[off:end], gotR[off:end]); err != nil {
			t.Fatalf("process block at %d: %v", off, err)
		}
	}

	for n := 0; n < len(input)+len(ir[0])-1; n++ {
		var wantL, wantR float64
		for k := range ir[0] {
			if j := n - k; j >= 0 && j < len(input) {
				x := input[j]
				wantL += x * ir[0][k]
				wantR -= x * ir[1][k]
			}
		}
		if math.Abs(gotL[n+partition]-wantL) > 1e-8 || math.Abs(gotR[n+partition]-wantR) > 1e-8 {
			t.Fatalf("n=%d: got (%v,%v) want (%v,%v)", n, gotL[n+partition], gotR[n+partition], wantL, wantR)
		}
	}
}

func TestConvolutionReverbGoesIdleOnSilence(t *testing.T) {
	rev, err := NewConvolutionReverb([][]float64{{1, 0.5, 0.25}}, 16)
	if err != nil {
		t.Fatalf("new reverb: %v", err)
	}
	if rev.Latency() != 16 {
		t.Fatalf("latency = %d, want 16", rev.Latency())
	}
	l, r := make([]float64, 16), make([]float64, 16)
	l[0], r[0] = 1, 1
	rev.ProcessBlock(l, r)
	for i := 0; i < 8; i++ {
		clear(l)
		clear(r)
		rev.ProcessBlock(l, r)
		if i == 0 && (math.Abs(l[0]-1) > 1e-9 || math.Abs(l[1]-0.5) > 1e-9 || math.Abs(l[2]-0.25) > 1e-9) {
			t.Fatalf("tail = %v, want the impulse response after one partition", l[:3])
		}
	}
	if !rev.Idle() {
		t.Fatal("reverb should idle after a silent tail")
	}
	for i := range l {
		l[i], r[i] = 1, 1
	}
	rev.ProcessBlock(l, r)
	if rev.Idle() {
		t.Fatal("reverb should wake on input")
	}
}

func TestConvolutionReverbRejectsBadPartition(t *testing.T) {
	if _, err := NewConvolutionReverb([][]float64{{1}}, 100); err == nil {
		t.Fatal("expected error for a partition that is not a power of two")
	}
	rev, err := NewConvolutionReverb([][]float64{{1}}, 16)
	if err != nil {
		t.Fatalf("new reverb: %v", err)
	}
	if err := rev.ProcessBlock(make([]float64, 4), make([]float64, 5)); err == nil {
		t.Fatal("expected error for mismatched channel lengths")
	}
}

func TestConvolutionReverbRejectsEmptyImpulse(t *testing.T) {
	if _, err := NewConvolutionReverb(nil, 64); err == nil {
		t.Fatal("expected error for empty impulse")
	}
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	c := NewChain(
		NewGain(48000, 0.5),
		NewEQ3Band(48000, 0, 0, 0),
		NewSweepFilter(48000, 0),
		NewEcho(48000, 0, 0.5),
	)
	if c.Len() != 4 {
		t.Fatalf("chain length = %d, want 4", c.Len())
	}
	c.UpdateBlock(64)
	l, r := c.Process(0.5, 0.5)
	if math.Abs(float64(l)-0.25) > 1e-5 || math.Abs(float64(r)-0.25) > 1e-5 {
		t.Errorf("expected 0.25 through half gain, got l=%f r=%f", l, r)
	}
	c.Reset()
}

func rmsOf(eq *EQ3Band, freq float64, sr int) float64 {
	var sum float64
	n := 0
	for i := 0; i < sr/2; i++ {
		if i%128 == 0 {
			eq.UpdateBlock(128)
		}
		x := float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(sr)))
		l, _ := eq.Process(x, x)
		if i > sr/4 {
			sum += float64(l * l)
			n++
		}
	}
	return math.Sqrt(sum / float64(n))
}
