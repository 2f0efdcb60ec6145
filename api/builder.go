package api

import "time"

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	transport Transport
	frameGap  time.Duration
}

// WithTransport sets the transport the frames are sent over.
func (b DriverBuilder) WithTransport(t Transport) DriverBuilder {
	b.transport = t
	return b
}

// WithFrameGap sets the pause between two frames. The device parses each
// frame before it reads the next one.
func (b DriverBuilder) WithFrameGap(gap time.Duration) DriverBuilder {
	b.frameGap = gap
	return b
}

// Build create a driver.
func (b DriverBuilder) Build(name string) Driver {
	if b.transport == nil {
		panic("driver " + name + " needs a transport")
	}

	return &driverImpl{
		name:      name,
		transport: b.transport,
		frameGap:  b.frameGap,
		sleep:     sleepCtx,
	}
}
