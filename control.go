package deckmix

import (
	"fmt"
	"strconv"
	"strings"
)

// GlobalDeck is the Deck value of a ControlEvent addressed to the engine.
const GlobalDeck = -1

// ControlEvent is one name+value control message.
type ControlEvent struct {
	Deck  int
	Name  string
	Value float64
}

func (c ControlEvent) String() string {
	if c.Deck == GlobalDeck {
		return fmt.Sprintf("%s %g", c.Name, c.Value)
	}
	return fmt.Sprintf("%s.%s %g", DeckName(c.Deck), c.Name, c.Value)
}

// Deck control names.
const (
	CtlVolume     = "volume"
	CtlBass       = "bass"
	CtlMid        = "mid"
	CtlTreble     = "treble"
	CtlFilter     = "filter"
	CtlDelayMix   = "delayMix"
	CtlDelayTime  = "delayTime"
	CtlPitch      = "pitch"
	CtlSide       = "side"
	CtlPlay       = "play"
	CtlStop       = "stop"
	CtlToggle     = "toggle"
	CtlSync       = "sync"
	CtlNudge      = "nudge"
	CtlResetPitch = "resetPitch"
)

// Global control names.
const (
	CtlCrossfader      = "crossfader"
	CtlCrossfaderCurve = "crossfaderCurve"
	CtlMaster          = "master"
	CtlMicVolume       = "micVolume"
	CtlMicEchoMix      = "micEchoMix"
	CtlMicEchoTime     = "micEchoTime"
	CtlReverb          = "reverb"
	CtlMic             = "mic"
	CtlToggleMic       = "toggleMic"
)

var deckControlTable = map[string]func(e *Engine, d *Deck, v float64) error{
	CtlVolume:    func(_ *Engine, d *Deck, v float64) error { d.SetVolume(v); return nil },
	CtlBass:      func(_ *Engine, d *Deck, v float64) error { d.SetBass(v); return nil },
	CtlMid:       func(_ *Engine, d *Deck, v float64) error { d.SetMid(v); return nil },
	CtlTreble:    func(_ *Engine, d *Deck, v float64) error { d.SetTreble(v); return nil },
	CtlFilter:    func(_ *Engine, d *Deck, v float64) error { d.SetFilter(v); return nil },
	CtlDelayMix:  func(_ *Engine, d *Deck, v float64) error { d.SetDelayMix(v); return nil },
	CtlDelayTime: func(_ *Engine, d *Deck, v float64) error { d.SetDelayTime(v); return nil },
	CtlPitch:     func(_ *Engine, d *Deck, v float64) error { d.SetPitchCents(v); return nil },
	CtlSide: func(e *Engine, d *Deck, v float64) error {
		return e.crossfade.SetSide(d.index, Side(int(v)))
	},
	CtlPlay:       func(_ *Engine, d *Deck, _ float64) error { return d.Play() },
	CtlStop:       func(_ *Engine, d *Deck, _ float64) error { d.Stop(); return nil },
	CtlToggle:     func(_ *Engine, d *Deck, _ float64) error { return d.TogglePlay() },
	CtlSync:       func(e *Engine, d *Deck, v float64) error { return e.Sync(d.index, int(v)) },
	CtlNudge:      func(e *Engine, d *Deck, v float64) error { return e.Nudge(d.index, v) },
	CtlResetPitch: func(_ *Engine, d *Deck, _ float64) error { d.ResetPitch(); return nil },
}

var globalControlTable = map[string]func(e *Engine, v float64) error{
	CtlCrossfader: func(e *Engine, v float64) error { e.crossfade.SetPosition(v); return nil },
	CtlCrossfaderCurve: func(e *Engine, v float64) error {
		law := CrossfadeSmooth
		if v >= 0.5 {
			law = CrossfadeSharp
		}
		e.crossfade.SetLaw(law)
		return nil
	},
	CtlMaster:      func(e *Engine, v float64) error { e.master.SetVolume(v); return nil },
	CtlMicVolume:   func(e *Engine, v float64) error { e.master.SetMicVolume(v); return nil },
	CtlMicEchoMix:  func(e *Engine, v float64) error { e.master.SetMicEchoMix(v); return nil },
	CtlMicEchoTime: func(e *Engine, v float64) error { e.master.SetMicEchoTime(v); return nil },
	CtlReverb:      func(e *Engine, v float64) error { e.master.SetReverb(v); return nil },
	CtlMic:         func(e *Engine, v float64) error { return e.SetMicOnAir(v >= 0.5) },
	CtlToggleMic:   func(e *Engine, _ float64) error { return e.ToggleMic() },
}

// Apply dispatches a control event. Unknown names return ErrUnknownControl.
func (e *Engine) Apply(c ControlEvent) error {
	if c.Deck == GlobalDeck {
		fn, ok := globalControlTable[c.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownControl, c.Name)
		}
		return fn(e, c.Value)
	}
	d, err := e.Deck(c.Deck)
	if err != nil {
		return err
	}
	fn, ok := deckControlTable[c.Name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownControl, c.Name)
	}
	return fn(e, d, c.Value)
}

// DeckName returns the letter used for deck i in control text: a, b, c...
func DeckName(i int) string {
	if i >= 0 && i < 26 {
		return string(rune('a' + i))
	}
	return strconv.Itoa(i)
}

// ParseDeck accepts a deck letter or a zero-based index.
func ParseDeck(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 && s[0] >= 'a' && s[0] <= 'z' {
		return int(s[0] - 'a'), nil
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDeck, s)
	}
	return i, nil
}

// ParseControl parses one line of control text:
//
//	<deck>.<name> [value]
//	<name> [value]
//
// The value of sync is the leader deck and may be given as a letter. The
// value of crossfaderCurve may be "smooth" or "sharp". A missing value is 0.
func ParseControl(line string) (ControlEvent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields) > 2 {
		return ControlEvent{}, fmt.Errorf("deckmix: malformed control %q", line)
	}
	ev := ControlEvent{Deck: GlobalDeck, Name: fields[0]}
	if deck, name, ok := strings.Cut(fields[0], "."); ok {
		idx, err := ParseDeck(deck)
		if err != nil {
			return ControlEvent{}, err
		}
		ev.Deck, ev.Name = idx, name
	}
	if len(fields) == 1 {
		return ev, nil
	}
	raw := fields[1]
	switch {
	case ev.Deck != GlobalDeck && ev.Name == CtlSync:
		idx, err := ParseDeck(raw)
		if err != nil {
			return ControlEvent{}, err
		}
		ev.Value = float64(idx)
	case ev.Deck == GlobalDeck && ev.Name == CtlCrossfaderCurve && !isNumber(raw):
		law, err := ParseCrossfadeLaw(raw)
		if err != nil {
			return ControlEvent{}, err
		}
		ev.Value = float64(law)
	default:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ControlEvent{}, fmt.Errorf("deckmix: control %s: %w", ev.Name, err)
		}
		ev.Value = v
	}
	return ev, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
