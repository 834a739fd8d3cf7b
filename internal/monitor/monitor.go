// Package monitor drives the polling loop: read each sensor in turn,
// log the measurement, render it, and feed the service watchdog.
package monitor

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/aqmon-data/aqmon/internal/influx"
	"github.com/aqmon-data/aqmon/internal/pms7003"
)

// ErrNoReaders is returned when every reader has failed and been
// dropped.
var ErrNoReaders = errors.New("no readers remaining")

// Reader is the slice of the sensor API the loop needs.
type Reader interface {
	ReadOne() (pms7003.Reading, error)
	ID() string
	Close() error
}

// Emitter records one measurement.
type Emitter interface {
	Emit(tags, fields []influx.Pair) error
}

// Renderer prints readings for humans.
type Renderer interface {
	PrintReading(pms7003.Reading)
	PrintDebug(pms7003.Reading)
}

// Pinger feeds a liveness watchdog.
type Pinger interface {
	Ping() error
}

// Monitor round-robins over a set of sensor readers until the context
// is cancelled or no readers remain.
type Monitor struct {
	readers  []Reader
	emitter  Emitter
	renderer Renderer
	watchdog Pinger

	debug   bool
	logOnly bool
	log     *zap.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithDebug switches output to full frame dumps.
func WithDebug(debug bool) Option {
	return func(m *Monitor) { m.debug = debug }
}

// WithLogOnly suppresses console rendering; measurements still go to
// the emitter.
func WithLogOnly(logOnly bool) Option {
	return func(m *Monitor) { m.logOnly = logOnly }
}

// WithLogger sets the loop's diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Monitor) { m.log = log }
}

// New assembles a Monitor over the given readers.
func New(readers []Reader, emitter Emitter, renderer Renderer, wd Pinger, opts ...Option) *Monitor {
	m := &Monitor{
		readers:  readers,
		emitter:  emitter,
		renderer: renderer,
		watchdog: wd,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Named("monitor")
	return m
}

// Run polls until ctx is cancelled (returns nil) or every reader has
// failed (returns ErrNoReaders). Read timeouts are transient: they are
// logged and the reader retried next cycle. Any other read error is
// fatal for that reader, which is closed and dropped.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if len(m.readers) == 0 {
			return ErrNoReaders
		}

		if err := m.watchdog.Ping(); err != nil {
			m.log.Warn("watchdog ping failed", zap.Error(err))
		}

		for i := range m.readers {
			if ctx.Err() != nil {
				return nil
			}
			m.poll(i)
		}
		m.readers = compact(m.readers)

		if ctx.Err() != nil {
			return nil
		}
	}
}

// poll reads one measurement from reader i, marking it nil on fatal
// failure.
func (m *Monitor) poll(i int) {
	reader := m.readers[i]
	if reader == nil {
		return
	}

	reading, err := reader.ReadOne()
	switch {
	case errors.Is(err, pms7003.ErrReadTimeout):
		// Transient: the sensor may just be warming up.
		m.log.Warn("read timeout", zap.String("device", reader.ID()))
		return
	case err != nil:
		m.log.Error("reader failed, dropping device",
			zap.String("device", reader.ID()), zap.Error(err))
		reader.Close()
		m.readers[i] = nil
		return
	}

	if err := m.emitter.Emit(
		[]influx.Pair{
			{Key: "type", Value: "PMS7003"},
			{Key: "id", Value: reader.ID()},
		},
		[]influx.Pair{
			{Key: "pm1_0_cf1", Value: reading.PM1CF1},
			{Key: "pm2_5_cf1", Value: reading.PM25CF1},
			{Key: "pm10_0_cf1", Value: reading.PM10CF1},
			{Key: "pm1_0_atm", Value: reading.PM1Atm},
			{Key: "pm2_5_atm", Value: reading.PM25Atm},
			{Key: "pm10_0_atm", Value: reading.PM10Atm},
		},
	); err != nil {
		m.log.Error("emit failed", zap.String("device", reader.ID()), zap.Error(err))
	}

	if m.debug {
		m.renderer.PrintDebug(reading)
	} else if !m.logOnly {
		m.renderer.PrintReading(reading)
	}
}

// compact drops readers marked nil by poll.
func compact(readers []Reader) []Reader {
	out := readers[:0]
	for _, r := range readers {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
