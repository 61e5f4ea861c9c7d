// Package serial opens USB serial links to motor controllers.
package serial

import (
	"io"

	"github.com/pkg/errors"
	ser "go.bug.st/serial"
	"go.uber.org/multierr"
)

// Parity describes a serial port parity setting.
type Parity int

const (
	// NoParity disable parity control (default).
	NoParity Parity = iota
	// OddParity enable odd-parity check.
	OddParity
	// EvenParity enable even-parity check.
	EvenParity
)

// StopBits describe a serial port stop bits setting.
type StopBits int

const (
	// OneStopBit sets 1 stop bit (default).
	OneStopBit StopBits = iota
	// OnePointFiveStopBits sets 1.5 stop bits.
	OnePointFiveStopBits
	// TwoStopBits sets 2 stop bits.
	TwoStopBits
)

// Options to be passed to Open().
type Options struct {
	BaudRate int
	DataBits int
	StopBits StopBits
	Parity   Parity
}

// DefaultOptions returns 8N1 at the given baud rate.
func DefaultOptions(baudRate int) Options {
	return Options{BaudRate: baudRate, DataBits: 8, StopBits: OneStopBit, Parity: NoParity}
}

// Open attempts to open a serial device on the given path. It's a variable
// in case you need to override it during tests.
var Open = func(devicePath string, options Options) (io.ReadWriteCloser, error) {
	mode := &ser.Mode{
		BaudRate: options.BaudRate,
		Parity:   ser.Parity(options.Parity),
		DataBits: options.DataBits,
		StopBits: ser.StopBits(options.StopBits),
	}

	device, err := ser.Open(devicePath, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "opening serial device %q", devicePath)
	}
	// Reads block until data arrives. A read timeout would surface as a zero byte read, which the
	// line framing treats as the controller hanging up.
	if err := device.SetReadTimeout(ser.NoTimeout); err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "setting serial read timeout"), device.Close())
	}
	return device, nil
}
