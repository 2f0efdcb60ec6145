package sequencer

import (
	"github.com/pkg/errors"

	"github.com/sarchlab/pbj/api"
	"github.com/sarchlab/pbj/codegen"
)

var _ api.Transport = (*Loopback)(nil)

// Loopback is a transport that programs a simulated sequencer instead of a
// board. Each frame is decoded and written into the instruction memory.
type Loopback struct {
	seq    *Sequencer
	closed bool
}

// NewLoopback creates a transport that feeds the given sequencer.
func NewLoopback(seq *Sequencer) *Loopback {
	return &Loopback{seq: seq}
}

// Send decodes a frame and loads the instruction it carries.
func (l *Loopback) Send(frame string) error {
	if l.closed {
		return errors.New("loopback is closed")
	}

	f, err := codegen.ParseFrame(frame)
	if err != nil {
		return err
	}

	inst, err := f.Decode()
	if err != nil {
		return errors.Wrapf(err, "frame %q", frame)
	}

	return l.seq.Load(inst)
}

// Close stops accepting frames.
func (l *Loopback) Close() error {
	l.closed = true
	return nil
}
