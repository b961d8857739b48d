package deckmix

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestCentsRateRoundTrip(t *testing.T) {
	tests := []struct {
		cents float64
		rate  float64
	}{
		{0, 1},
		{1200, 2},
		{-1200, 0.5},
		{700, 1.4983070768766815},
	}
	for _, tc := range tests {
		if got := CentsToRate(tc.cents); math.Abs(got-tc.rate) > 1e-12 {
			t.Errorf("CentsToRate(%v) = %v, want %v", tc.cents, got, tc.rate)
		}
		if got := RateToCents(tc.rate); math.Abs(got-tc.cents) > 1e-9 {
			t.Errorf("RateToCents(%v) = %v, want %v", tc.rate, got, tc.cents)
		}
	}
}

func TestSyncRate(t *testing.T) {
	tests := []struct {
		leader, follower float64
		want             float64
		err              bool
	}{
		{128, 128, 1, false},
		{128, 120, 128.0 / 120, false},
		{300, 100, 3, false},
		{60, 140, 60.0 / 140, false},
		{0, 120, 0, true},
		{128, 0, 0, true},
	}
	for _, tc := range tests {
		got, err := SyncRate(tc.leader, tc.follower)
		if tc.err {
			if !errors.Is(err, ErrMissingBPM) {
				t.Errorf("SyncRate(%v, %v): expected ErrMissingBPM, got %v", tc.leader, tc.follower, err)
			}
			continue
		}
		if err != nil || math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("SyncRate(%v, %v) = %v, %v; want %v", tc.leader, tc.follower, got, err, tc.want)
		}
	}
}

func TestNudgeRate(t *testing.T) {
	got, err := NudgeRate(120, 120, 6)
	if err != nil || math.Abs(got-1.05) > 1e-12 {
		t.Fatalf("NudgeRate = %v, %v; want 1.05", got, err)
	}
	if _, err := NudgeRate(0, 0, 1); !errors.Is(err, ErrMissingBPM) {
		t.Fatalf("expected ErrMissingBPM, got %v", err)
	}
	if _, err := NudgeRate(120, 10, -10); err == nil {
		t.Fatal("nudging to zero bpm should fail")
	}
}

// firstSampleEstimator reports the first sample value times 1000 as the tempo.
func firstSampleEstimator(_ context.Context, samples []float32, _ int) (float64, error) {
	return math.Round(float64(samples[0]) * 1000), nil
}

func TestSyncMatchesLeaderTempo(t *testing.T) {
	e := newTestEngine(t, WithEstimator(firstSampleEstimator))
	a, _ := e.Deck(0)
	b, _ := e.Deck(1)
	if err := a.Load(constantTrack(4800, 0.120)); err != nil {
		t.Fatalf("load a: %v", err)
	}
	if err := b.Load(constantTrack(4800, 0.128)); err != nil {
		t.Fatalf("load b: %v", err)
	}
	a.analysis.Wait()
	b.analysis.Wait()

	b.SetPitchCents(100)
	lead := b.Status().CurrentBPM
	if err := e.Sync(0, 1); err != nil {
		t.Fatalf("sync: %v", err)
	}
	s := a.Status()
	if want := lead / 120; math.Abs(s.Rate-want) > 1e-12 {
		t.Fatalf("rate = %v, want %v", s.Rate, want)
	}
	if math.Abs(s.CurrentBPM-lead) > 1e-9 {
		t.Fatalf("current bpm = %v, want %v", s.CurrentBPM, lead)
	}
	if want := RateToCents(s.Rate); math.Abs(s.PitchCents-want) > 1e-9 {
		t.Fatalf("pitch = %v, want %v", s.PitchCents, want)
	}
}

func TestSyncAppliesRatioBeyondPitchRange(t *testing.T) {
	e := newTestEngine(t, WithEstimator(firstSampleEstimator))
	a, _ := e.Deck(0)
	b, _ := e.Deck(1)
	a.Load(constantTrack(4800, 0.080))
	b.Load(constantTrack(4800, 0.160))
	a.analysis.Wait()
	b.analysis.Wait()

	b.SetPitchCents(600)
	lead := b.Status().CurrentBPM
	if math.Abs(lead-160*math.Sqrt2) > 1e-9 {
		t.Fatalf("leader tempo = %v, want %v", lead, 160*math.Sqrt2)
	}
	if err := e.Sync(0, 1); err != nil {
		t.Fatalf("sync: %v", err)
	}
	s := a.Status()
	if want := lead / 80; math.Abs(s.Rate-want) > 1e-12 {
		t.Fatalf("rate = %v, want %v", s.Rate, want)
	}
	if math.Abs(s.CurrentBPM-lead) > 1e-9 {
		t.Fatalf("current bpm = %v, want %v", s.CurrentBPM, lead)
	}
	if s.PitchCents <= MaxPitchCents {
		t.Fatalf("pitch = %v, want the derived value above %v", s.PitchCents, MaxPitchCents)
	}
}

func TestSyncWithoutTempoIsNoop(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.Deck(0)
	b, _ := e.Deck(1)
	a.Load(constantTrack(4800, 0.1))
	b.Load(constantTrack(4800, 0.1))
	a.analysis.Wait()
	b.analysis.Wait()
	a.SetPitchCents(50)

	if err := e.Sync(0, 1); !errors.Is(err, ErrMissingBPM) {
		t.Fatalf("expected ErrMissingBPM, got %v", err)
	}
	if s := a.Status(); s.PitchCents != 50 {
		t.Fatalf("failed sync changed pitch to %v", s.PitchCents)
	}
	if err := e.Sync(0, 7); !errors.Is(err, ErrUnknownDeck) {
		t.Fatalf("expected ErrUnknownDeck, got %v", err)
	}
}

func TestNudgeMovesTempo(t *testing.T) {
	e := newTestEngine(t, WithEstimator(constantEstimator(100)))
	d, _ := e.Deck(0)
	d.Load(constantTrack(4800, 0.1))
	d.analysis.Wait()

	if err := e.Nudge(0, 5); err != nil {
		t.Fatalf("nudge: %v", err)
	}
	s := d.Status()
	if math.Abs(s.CurrentBPM-105) > 1e-9 || math.Abs(s.Rate-1.05) > 1e-12 {
		t.Fatalf("after nudge got %v bpm at rate %v", s.CurrentBPM, s.Rate)
	}
	if err := e.Nudge(0, -200); err == nil {
		t.Fatal("nudge below zero should fail")
	}
}
