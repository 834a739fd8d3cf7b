package pms7003

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aqmon-data/aqmon/internal/timeutil"
)

// ErrReadTimeout is returned by ReadOne when no valid frame arrived
// within the read deadline. It is terminal for the call only; the
// reader stays usable.
var ErrReadTimeout = errors.New("read timeout exceeded")

// readChunkSize is how many bytes we ask the driver for per read.
const readChunkSize = 1024

// State describes the lifecycle of a Reader.
type State int

const (
	// StateIdle means the reader is open and ready for ReadOne.
	StateIdle State = iota

	// StateReading means a ReadOne call is in progress.
	StateReading

	// StateFailed means a port-level I/O error occurred; the reader is
	// unusable and every subsequent call returns the stored cause.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reader drains one serial port and produces validated Readings. It
// exclusively owns its port handle and receive buffer, so a single
// Reader must not be shared across goroutines; poll multiple sensors
// with one Reader each.
type Reader struct {
	port Port
	path string

	buf            []byte
	checksumErrors uint64

	state State
	cause error

	clock timeutil.Clock
	log   *zap.Logger
}

// Option configures a Reader.
type Option func(*readerConfig)

type readerConfig struct {
	opener Opener
	clock  timeutil.Clock
	log    *zap.Logger
}

// WithOpener replaces the serial port opener used by Open.
func WithOpener(opener Opener) Option {
	return func(c *readerConfig) { c.opener = opener }
}

// WithClock replaces the clock used for the read deadline.
func WithClock(clock timeutil.Clock) Option {
	return func(c *readerConfig) { c.clock = clock }
}

// WithLogger sets the logger for read-loop diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(c *readerConfig) { c.log = log }
}

func newReaderConfig(opts []Option) readerConfig {
	cfg := readerConfig{
		opener: OpenSerialPort,
		clock:  timeutil.RealClock{},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Open opens the serial port at path and returns a ready Reader. The
// port is opened eagerly so a bad path fails here, not on first read.
func Open(path string, opts ...Option) (*Reader, error) {
	cfg := newReaderConfig(opts)

	port, err := cfg.opener(path)
	if err != nil {
		return nil, err
	}

	return newReader(port, path, cfg), nil
}

// NewReader wraps an already-open port. The reader takes ownership of
// the port and closes it on Close.
func NewReader(port Port, path string, opts ...Option) *Reader {
	return newReader(port, path, newReaderConfig(opts))
}

func newReader(port Port, path string, cfg readerConfig) *Reader {
	return &Reader{
		port:  port,
		path:  path,
		state: StateIdle,
		clock: cfg.clock,
		log:   cfg.log.Named("pms7003").With(zap.String("device", path)),
	}
}

// ID returns the device path this reader is attached to.
func (r *Reader) ID() string {
	return r.path
}

// State returns the reader's lifecycle state.
func (r *Reader) State() State {
	return r.state
}

// ChecksumErrors returns the number of frames discarded for checksum
// mismatch over the reader's lifetime.
func (r *Reader) ChecksumErrors() uint64 {
	return r.checksumErrors
}

// Close closes the underlying port.
func (r *Reader) Close() error {
	return r.port.Close()
}

// fail records a port-level error as terminal for this reader.
func (r *Reader) fail(err error) error {
	r.state = StateFailed
	r.cause = err
	return err
}

// ReadOne blocks until one valid frame is decoded or the deadline
// expires, returning ErrReadTimeout in the latter case. The deadline is
// measured from the start of the call, not from the last byte, so a
// noisy line cannot stall the caller indefinitely. Leftover bytes past
// the returned frame stay buffered for the next call.
//
// Port-level I/O errors are terminal: the reader moves to StateFailed
// and every later call returns the stored cause.
func (r *Reader) ReadOne() (Reading, error) {
	if r.state == StateFailed {
		return Reading{}, fmt.Errorf("reader failed: %w", r.cause)
	}

	r.state = StateReading
	defer func() {
		if r.state == StateReading {
			r.state = StateIdle
		}
	}()

	// Drop the driver's backlog so we decode current air, not stale
	// frames queued while the caller was away.
	if err := r.port.ResetInputBuffer(); err != nil {
		return Reading{}, r.fail(fmt.Errorf("flush input: %w", err))
	}

	began := r.clock.Now()
	chunk := make([]byte, readChunkSize)

	for {
		// Decode whatever is already buffered before reading more.
		for len(r.buf) >= FrameSize {
			reading, consumed, result := Decode(r.buf)
			r.buf = r.buf[consumed:]

			switch result {
			case FrameOK:
				return reading, nil
			case BadChecksum:
				r.checksumErrors++
				r.log.Warn("checksum does not match",
					zap.Uint64("checksum_errors", r.checksumErrors))
			case Resync:
				// keep sliding
			}
		}

		if r.clock.Since(began) > ReadTimeout {
			r.log.Warn("read timeout exceeded")
			return Reading{}, ErrReadTimeout
		}

		// Blocks for at most the port's own read timeout; a timeout
		// surfaces as a zero-length read, not an error.
		n, err := r.port.Read(chunk)
		if err != nil {
			return Reading{}, r.fail(fmt.Errorf("serial read: %w", err))
		}
		if n > 0 {
			r.buf = append(r.buf, chunk[:n]...)
		}
	}
}
