// Package config loads the settings of the pbj tool and builds devices from
// them.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/pbj/core"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the content of a pbj configuration file.
type Config struct {
	Serial    Serial    `yaml:"serial"`
	Output    Output    `yaml:"output"`
	Sequencer Sequencer `yaml:"sequencer"`
}

// Serial configures the link to a board.
type Serial struct {
	Port     string        `yaml:"port"`
	BaudRate int           `yaml:"baud_rate"`
	FrameGap time.Duration `yaml:"frame_gap"`
}

// Output configures where generated source files go.
type Output struct {
	Dir string `yaml:"dir"`
}

// Sequencer configures the simulated board.
type Sequencer struct {
	FreqMHz   float64           `yaml:"freq_mhz"`
	MaxCycles uint64            `yaml:"max_cycles"`
	Inputs    map[string]string `yaml:"inputs"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Serial: Serial{
			BaudRate: 115200,
			FrameGap: 10 * time.Millisecond,
		},
		Output: Output{
			Dir: ".",
		},
		Sequencer: Sequencer{
			FreqMHz:   16,
			MaxCycles: 1_000_000,
		},
	}
}

// Load reads a YAML configuration file. Fields missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "%s", path)
	}

	return cfg, nil
}

// Validate checks the ranges of all the fields.
func (c Config) Validate() error {
	if c.Serial.BaudRate <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "baud_rate %d", c.Serial.BaudRate)
	}

	if c.Serial.FrameGap < 0 {
		return errors.Wrapf(ErrInvalidConfig, "frame_gap %s", c.Serial.FrameGap)
	}

	if c.Sequencer.FreqMHz <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "freq_mhz %g", c.Sequencer.FreqMHz)
	}

	if _, err := c.Sequencer.InputLevels(); err != nil {
		return err
	}

	return nil
}

// InputLevels converts the input map into levels per line.
func (s Sequencer) InputLevels() (map[core.Input]bool, error) {
	levels := make(map[core.Input]bool, len(s.Inputs))

	for name, level := range s.Inputs {
		in, ok := core.LookupInput(name)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidConfig, "unknown input %q", name)
		}

		high, err := ParseLevel(level)
		if err != nil {
			return nil, errors.Wrapf(err, "input %s", name)
		}

		levels[in] = high
	}

	return levels, nil
}

// ParseLevel parses an input level: high, low, 1 or 0.
func ParseLevel(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "1":
		return true, nil
	case "low", "0":
		return false, nil
	default:
		return false, errors.Wrapf(ErrInvalidConfig, "level %q", s)
	}
}
