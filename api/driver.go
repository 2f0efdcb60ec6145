// Package api defines the driver API for programming a PBJ board.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// Transport delivers wire-protocol frames to a device.
type Transport interface {
	// Send writes one frame. It returns once the frame has been handed to
	// the link.
	Send(frame string) error

	// Close releases the link.
	Close() error
}

// Driver provides the interface to program a device.
type Driver interface {
	// Program sends the frames to the device in order. It stops at the first
	// transport error or when the context is done, and reports how far it
	// got in the returned error.
	Program(ctx context.Context, frames []string) error

	// Sent returns the number of frames sent since the driver was built.
	Sent() int

	// Close closes the transport.
	Close() error
}

type driverImpl struct {
	name      string
	transport Transport
	frameGap  time.Duration
	sleep     func(ctx context.Context, d time.Duration) error

	sent int
}

type programTask struct {
	frames []string
	round  int
}

func (t *programTask) isFinished() bool {
	return t.round >= len(t.frames)
}

// Program sends all the frames of a program.
func (d *driverImpl) Program(ctx context.Context, frames []string) error {
	task := &programTask{frames: frames}

	slog.Info("Program",
		"Driver", d.name,
		"Frames", len(frames),
	)

	for !task.isFinished() {
		if err := d.doOneFrame(ctx, task); err != nil {
			return err
		}
	}

	return nil
}

func (d *driverImpl) doOneFrame(ctx context.Context, task *programTask) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "%s: stopped before frame %d of %d",
			d.name, task.round, len(task.frames))
	}

	if task.round > 0 && d.frameGap > 0 {
		if err := d.sleep(ctx, d.frameGap); err != nil {
			return errors.Wrapf(err, "%s: stopped before frame %d of %d",
				d.name, task.round, len(task.frames))
		}
	}

	frame := task.frames[task.round]
	if err := d.transport.Send(frame); err != nil {
		return errors.Wrapf(err, "%s: failed to send frame %d (%s)",
			d.name, task.round, frame)
	}

	slog.Debug("FrameSent",
		"Driver", d.name,
		"Index", task.round,
		"Frame", frame,
	)

	task.round++
	d.sent++

	return nil
}

func (d *driverImpl) Sent() int {
	return d.sent
}

func (d *driverImpl) Close() error {
	return errors.Wrapf(d.transport.Close(), "%s: failed to close transport", d.name)
}

func sleepCtx(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
