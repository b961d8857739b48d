// Package effects implements the per-deck signal path stages and the master
// reverb send.
package effects

// Effector processes one stereo frame.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// BlockUpdater is implemented by effects whose coefficients are recomputed
// once per control block instead of per sample.
type BlockUpdater interface {
	UpdateBlock(frames int)
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects  []Effector
	updaters []BlockUpdater
}

func NewChain(effects ...Effector) *Chain {
	c := &Chain{}
	for _, e := range effects {
		c.Add(e)
	}
	return c
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

// UpdateBlock refreshes block-rate parameters of every stage before the
// next frames samples are processed.
func (c *Chain) UpdateBlock(frames int) {
	for _, u := range c.updaters {
		u.UpdateBlock(frames)
	}
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
	if u, ok := e.(BlockUpdater); ok {
		c.updaters = append(c.updaters, u)
	}
}

// Len returns the number of stages.
func (c *Chain) Len() int {
	return len(c.effects)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
