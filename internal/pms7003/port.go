package pms7003

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Serial parameters fixed by the PMS7003 datasheet. The sensor always
// talks 9600 8N1 and the protocol allows up to two seconds for a frame
// to appear, so none of this is configurable.
const (
	BaudRate    = 9600
	ReadTimeout = 2 * time.Second
)

// Port defines the minimal interface the reader needs from a serial
// port. This abstraction enables unit testing without real sensor
// hardware.
type Port interface {
	io.Reader
	io.Closer

	// ResetInputBuffer discards any unread bytes buffered by the
	// serial driver.
	ResetInputBuffer() error

	// SetReadTimeout bounds how long a single Read call may block.
	SetReadTimeout(timeout time.Duration) error
}

// Opener is a function type for opening serial ports. This allows
// discovery and tests to replace the opener function.
type Opener func(path string) (Port, error)

// OpenSerialPort opens a real serial port at the given path with the
// fixed PMS7003 mode. It is the default Opener.
func OpenSerialPort(path string) (Port, error) {
	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}

	return port, nil
}
