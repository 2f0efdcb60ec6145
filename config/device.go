package config

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/pbj/sequencer"
)

// DeviceBuilder can build simulated boards.
type DeviceBuilder struct {
	engine sim.Engine
	cfg    Config
}

// WithEngine sets the engine that drives the device simulation.
func (d DeviceBuilder) WithEngine(engine sim.Engine) DeviceBuilder {
	d.engine = engine
	return d
}

// WithConfig sets the configuration the device is built from.
func (d DeviceBuilder) WithConfig(cfg Config) DeviceBuilder {
	d.cfg = cfg
	return d
}

// Build creates a sequencer with the configured clock, cycle limit and input
// levels.
func (d DeviceBuilder) Build(name string) (*sequencer.Sequencer, error) {
	levels, err := d.cfg.Sequencer.InputLevels()
	if err != nil {
		return nil, err
	}

	b := sequencer.NewBuilder().
		WithEngine(d.engine).
		WithFreq(sim.Freq(d.cfg.Sequencer.FreqMHz) * sim.MHz).
		WithMaxCycles(d.cfg.Sequencer.MaxCycles)

	for in, high := range levels {
		b = b.WithInput(in, high)
	}

	return b.Build(name), nil
}
