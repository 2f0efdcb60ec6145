// Package serialport is the transport that talks to a PBJ board over its USB
// serial link.
package serialport

import (
	"log/slog"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/sarchlab/pbj/api"
	"github.com/sarchlab/pbj/config"
)

var _ api.Transport = (*Port)(nil)

// ErrNoPort is returned when no serial port is configured.
var ErrNoPort = errors.New("no serial port configured")

type link interface {
	Write(p []byte) (int, error)
	Close() error
}

// Port sends frames over a serial link.
type Port struct {
	name string
	conn link
}

// Open opens the configured serial port.
func Open(cfg config.Serial) (*Port, error) {
	if cfg.Port == "" {
		return nil, ErrNoPort
	}

	conn, err := serial.Open(cfg.Port, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", cfg.Port)
	}

	slog.Info("SerialOpen",
		"Port", cfg.Port,
		"BaudRate", cfg.BaudRate,
	)

	return &Port{name: cfg.Port, conn: conn}, nil
}

// List returns the names of the serial ports present on the host.
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list serial ports")
	}

	return ports, nil
}

// Send writes one frame, retrying short writes.
func (p *Port) Send(frame string) error {
	buf := []byte(frame)

	for len(buf) > 0 {
		n, err := p.conn.Write(buf)
		if err != nil {
			return errors.Wrapf(err, "%s: write failed", p.name)
		}

		if n == 0 {
			return errors.Errorf("%s: link accepted no bytes", p.name)
		}

		buf = buf[n:]
	}

	return nil
}

// Close closes the serial link.
func (p *Port) Close() error {
	return errors.Wrapf(p.conn.Close(), "%s: close failed", p.name)
}
