package deckmix

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/cbegin/deckmix-go/internal/smooth"
)

// CrossfadeLaw selects how the crossfader position maps to side gains.
type CrossfadeLaw int

const (
	// CrossfadeSmooth is the equal-power law.
	CrossfadeSmooth CrossfadeLaw = iota
	// CrossfadeSharp is the linear law.
	CrossfadeSharp
)

func (l CrossfadeLaw) String() string {
	if l == CrossfadeSharp {
		return "sharp"
	}
	return "smooth"
}

// ParseCrossfadeLaw accepts "smooth" or "sharp".
func ParseCrossfadeLaw(s string) (CrossfadeLaw, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "smooth", "":
		return CrossfadeSmooth, nil
	case "sharp":
		return CrossfadeSharp, nil
	default:
		return CrossfadeSmooth, fmt.Errorf("deckmix: unknown crossfader curve %q", s)
	}
}

// CrossfadeGains returns the gains of side A and side B at position x in
// [0, 1]. x = 0 is fully side A.
func CrossfadeGains(law CrossfadeLaw, x float64) (a, b float64) {
	x = math.Max(0, math.Min(1, x))
	if law == CrossfadeSharp {
		return 1 - x, x
	}
	return math.Cos(x * math.Pi / 2), math.Cos((1 - x) * math.Pi / 2)
}

// Side assigns a deck to one end of the crossfader.
type Side int

const (
	SideA Side = iota
	SideB
	// SideThru ignores the crossfader.
	SideThru
)

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	default:
		return "thru"
	}
}

// defaultSide alternates decks between the two sides.
func defaultSide(index int) Side {
	if index%2 == 0 {
		return SideA
	}
	return SideB
}

// CrossfadeBus holds one smoothed gain per deck. Gain targets are
// recomputed from the law only when a control changes; the render goroutine
// only advances the ramps.
type CrossfadeBus struct {
	mu       sync.Mutex
	position float64
	law      CrossfadeLaw
	sides    []Side

	gains []*smooth.Param
}

func newCrossfadeBus(sampleRate, decks int, law CrossfadeLaw) *CrossfadeBus {
	b := &CrossfadeBus{
		position: 0.5,
		law:      law,
		sides:    make([]Side, decks),
		gains:    make([]*smooth.Param, decks),
	}
	for i := range b.sides {
		b.sides[i] = defaultSide(i)
	}
	for i := range b.gains {
		b.gains[i] = smooth.New(sampleRate, b.gainFor(i))
	}
	return b
}

// SetPosition moves the crossfader to x in [0, 1].
func (b *CrossfadeBus) SetPosition(x float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = math.Max(0, math.Min(1, x))
	b.retargetLocked()
}

// SetLaw switches the gain law.
func (b *CrossfadeBus) SetLaw(law CrossfadeLaw) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.law = law
	b.retargetLocked()
}

// SetSide assigns deck to a side.
func (b *CrossfadeBus) SetSide(deck int, side Side) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if deck < 0 || deck >= len(b.sides) {
		return fmt.Errorf("%w: %d", ErrUnknownDeck, deck)
	}
	if side < SideA || side > SideThru {
		return fmt.Errorf("deckmix: invalid crossfader side %d", side)
	}
	b.sides[deck] = side
	b.retargetLocked()
	return nil
}

func (b *CrossfadeBus) Position() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position
}

func (b *CrossfadeBus) Law() CrossfadeLaw {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.law
}

func (b *CrossfadeBus) Side(deck int) Side {
	b.mu.Lock()
	defer b.mu.Unlock()
	if deck < 0 || deck >= len(b.sides) {
		return SideThru
	}
	return b.sides[deck]
}

// Gain returns the scheduled gain of deck.
func (b *CrossfadeBus) Gain(deck int) float64 {
	if deck < 0 || deck >= len(b.gains) {
		return 0
	}
	return b.gains[deck].Target()
}

func (b *CrossfadeBus) retargetLocked() {
	for i, g := range b.gains {
		g.SetTarget(b.gainFor(i), smooth.DefaultTimeConstant)
	}
}

func (b *CrossfadeBus) gainFor(deck int) float64 {
	a, bb := CrossfadeGains(b.law, b.position)
	switch b.sides[deck] {
	case SideA:
		return a
	case SideB:
		return bb
	default:
		return 1
	}
}

// mix adds src scaled by the deck gain into dst. Render goroutine only.
func (b *CrossfadeBus) mix(deck int, dst, src []float32) {
	g := b.gains[deck]
	for i := 0; i+1 < len(src); i += 2 {
		k := float32(g.Next())
		dst[i] += src[i] * k
		dst[i+1] += src[i+1] * k
	}
}
