package deckmix

import (
	"fmt"
	"math"
)

// MinPitchCents and MaxPitchCents bound the pitch control. Rates derived
// from tempo data by Sync and Nudge are applied exactly and may fall outside.
const (
	MinPitchCents = -1200.0
	MaxPitchCents = 1200.0
)

// CentsToRate converts a pitch offset in cents to a playback rate.
func CentsToRate(cents float64) float64 {
	return math.Exp2(cents / 1200)
}

// RateToCents converts a playback rate to a pitch offset in cents.
func RateToCents(rate float64) float64 {
	return 1200 * math.Log2(rate)
}

func clampCents(cents float64) float64 {
	return math.Max(MinPitchCents, math.Min(MaxPitchCents, cents))
}

// SyncRate returns the playback rate that makes a track analyzed at
// followerOriginal play at leaderCurrent BPM. The ratio is not clamped.
func SyncRate(leaderCurrent, followerOriginal float64) (float64, error) {
	if !(leaderCurrent > 0) || !(followerOriginal > 0) {
		return 0, ErrMissingBPM
	}
	return leaderCurrent / followerOriginal, nil
}

// NudgeRate returns the rate after moving the current tempo by delta BPM.
func NudgeRate(original, current, delta float64) (float64, error) {
	if !(original > 0) || !(current > 0) {
		return 0, ErrMissingBPM
	}
	next := current + delta
	if !(next > 0) {
		return 0, fmt.Errorf("deckmix: nudge to %.2f bpm", next)
	}
	return next / original, nil
}

// Sync matches the tempo of the follower deck to the current tempo of the
// leader deck. It is a no-op, logged as a warning, when either tempo is
// unknown.
func (e *Engine) Sync(follower, leader int) error {
	f, err := e.Deck(follower)
	if err != nil {
		return err
	}
	l, err := e.Deck(leader)
	if err != nil {
		return err
	}
	leaderBpm := l.Status().CurrentBPM

	f.mu.Lock()
	defer f.mu.Unlock()
	rate, err := SyncRate(leaderBpm, f.originalBpm)
	if err != nil {
		e.logger.Printf("WARN sync deck %d to deck %d: %v", follower, leader, err)
		return err
	}
	f.applyRateLocked(rate)
	return nil
}

// Nudge moves the current tempo of a deck by delta BPM. It needs a known
// tempo, like Sync.
func (e *Engine) Nudge(deck int, delta float64) error {
	d, err := e.Deck(deck)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	rate, err := NudgeRate(d.originalBpm, d.currentBpm, delta)
	if err != nil {
		e.logger.Printf("WARN nudge deck %d by %+.2f: %v", deck, delta, err)
		return err
	}
	d.applyRateLocked(rate)
	return nil
}
