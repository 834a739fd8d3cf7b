package pms7003

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// TestablePort implements Port with configurable behaviour for testing.
// It provides fine-grained control over reads, flushes, and errors.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls records the number of Read calls
	ReadCalls int

	// FlushCalls records the number of ResetInputBuffer calls
	FlushCalls int

	// ReadTimeout is the current read timeout
	ReadTimeout time.Duration

	// ChunkSize caps the bytes returned per Read when > 0, simulating
	// a slow line that delivers frames in pieces
	ChunkSize int

	// OnRead, if set, runs at the start of every Read call with the
	// call number (1-based). Tests use it to feed data incrementally
	// or to advance a mock clock.
	OnRead func(call int)
}

// NewTestablePort creates a new TestablePort for testing.
func NewTestablePort() *TestablePort {
	return &TestablePort{ReadBuffer: bytes.NewBuffer(nil)}
}

// Feed appends data to the read buffer.
func (t *TestablePort) Feed(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadBuffer.Write(p)
}

// Read returns buffered data, or (0, nil) when the buffer is empty,
// matching a serial driver whose read timeout expired without data.
func (t *TestablePort) Read(p []byte) (int, error) {
	t.mu.Lock()
	t.ReadCalls++
	call := t.ReadCalls
	hook := t.OnRead
	t.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.ChunkSize > 0 && len(p) > t.ChunkSize {
		p = p[:t.ChunkSize]
	}

	n, err := t.ReadBuffer.Read(p)
	if err != nil {
		// empty buffer reads as a driver timeout, not EOF
		return 0, nil
	}
	return n, nil
}

// ResetInputBuffer records the flush but keeps buffered test data so
// scripted streams survive the flush the reader issues on each call.
func (t *TestablePort) ResetInputBuffer() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.FlushCalls++
	return nil
}

// SetReadTimeout records the requested timeout.
func (t *TestablePort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadTimeout = timeout
	return nil
}

// Close marks the port closed.
func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	return t.CloseError
}
