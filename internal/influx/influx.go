// Package influx emits InfluxDB line-protocol records to a
// size-rotated log file for later ingestion.
//
// https://docs.influxdata.com/influxdb/v1.8/write_protocols/line_protocol_tutorial/
package influx

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aqmon-data/aqmon/internal/timeutil"
)

// Rotation defaults: rotate at 10 MB, keep one backup.
const (
	DefaultMeasurement = "bmnode"
	defaultMaxSizeMB   = 10
	defaultMaxBackups  = 1
)

// Pair is one ordered tag or field. Slices rather than maps keep
// emitted lines deterministic.
type Pair struct {
	Key   string
	Value any
}

// Emitter writes line-protocol records with nanosecond timestamps.
type Emitter struct {
	w           io.Writer
	closer      io.Closer
	path        string
	measurement string
	clock       timeutil.Clock
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithMeasurement overrides the default measurement name.
func WithMeasurement(name string) Option {
	return func(e *Emitter) { e.measurement = name }
}

// WithClock replaces the timestamp source, for tests.
func WithClock(clock timeutil.Clock) Option {
	return func(e *Emitter) { e.clock = clock }
}

// NewFileEmitter returns an Emitter appending to a rotating file at
// path. Rotation sizes of zero select the defaults.
func NewFileEmitter(path string, maxSizeMB, maxBackups int, opts ...Option) *Emitter {
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}

	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}

	e := newEmitter(lj, path, opts...)
	e.closer = lj
	return e
}

// NewWriterEmitter returns an Emitter writing to w, for tests.
func NewWriterEmitter(w io.Writer, opts ...Option) *Emitter {
	return newEmitter(w, "", opts...)
}

func newEmitter(w io.Writer, path string, opts ...Option) *Emitter {
	e := &Emitter{
		w:           w,
		path:        path,
		measurement: DefaultMeasurement,
		clock:       timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Path returns the destination file path, empty for writer-backed
// emitters.
func (e *Emitter) Path() string {
	return e.path
}

// Measurement returns the measurement name used for emitted lines.
func (e *Emitter) Measurement() string {
	return e.measurement
}

// Emit writes one line-protocol record with the current timestamp.
func (e *Emitter) Emit(tags, fields []Pair) error {
	ts := e.clock.Now().UnixNano()

	var b strings.Builder
	b.WriteString(e.measurement)
	if len(tags) > 0 {
		b.WriteByte(',')
		b.WriteString(joinPairs(tags))
	}
	b.WriteByte(' ')
	b.WriteString(joinPairs(fields))
	fmt.Fprintf(&b, " %d\n", ts)

	if _, err := io.WriteString(e.w, b.String()); err != nil {
		return fmt.Errorf("write measurement: %w", err)
	}
	return nil
}

// Close closes the underlying file, if any.
func (e *Emitter) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}

// joinPairs renders ordered pairs as k=v,k=v with spaces in keys
// replaced by underscores.
func joinPairs(pairs []Pair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		key := strings.ReplaceAll(p.Key, " ", "_")
		parts[i] = fmt.Sprintf("%s=%v", key, p.Value)
	}
	return strings.Join(parts, ",")
}
