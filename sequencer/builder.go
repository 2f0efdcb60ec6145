package sequencer

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/pbj/core"
)

// Builder can create new sequencers.
type Builder struct {
	engine    sim.Engine
	freq      sim.Freq
	maxCycles uint64
	inputs    map[core.Input]bool
}

// NewBuilder returns a builder with the board defaults.
func NewBuilder() Builder {
	return Builder{
		freq: 16 * sim.MHz,
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock frequency of the board.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithMaxCycles bounds a run. Zero means unbounded.
func (b Builder) WithMaxCycles(n uint64) Builder {
	b.maxCycles = n
	return b
}

// WithInput sets the initial level of an input line.
func (b Builder) WithInput(in core.Input, high bool) Builder {
	inputs := make(map[core.Input]bool, len(b.inputs)+1)
	for k, v := range b.inputs {
		inputs[k] = v
	}

	inputs[in] = high
	b.inputs = inputs

	return b
}

// Build creates a sequencer with an empty instruction memory.
func (b Builder) Build(name string) *Sequencer {
	if b.engine == nil {
		panic("sequencer: engine is not set")
	}

	s := &Sequencer{
		highest:   -1,
		maxCycles: b.maxCycles,
	}

	s.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, s)

	for in, high := range b.inputs {
		s.inputs[in] = high
	}

	return s
}
