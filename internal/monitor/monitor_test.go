package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqmon-data/aqmon/internal/influx"
	"github.com/aqmon-data/aqmon/internal/pms7003"
)

type fakeReader struct {
	id      string
	results []result
	calls   int
	closed  bool

	// onRead runs after each ReadOne, typically to cancel the context
	onRead func()
}

type result struct {
	reading pms7003.Reading
	err     error
}

func (f *fakeReader) ReadOne() (pms7003.Reading, error) {
	var r result
	if f.calls < len(f.results) {
		r = f.results[f.calls]
	}
	f.calls++
	if f.onRead != nil {
		f.onRead()
	}
	return r.reading, r.err
}

func (f *fakeReader) ID() string   { return f.id }
func (f *fakeReader) Close() error { f.closed = true; return nil }

type emitted struct {
	tags, fields []influx.Pair
}

type fakeEmitter struct {
	lines []emitted
	err   error
}

func (f *fakeEmitter) Emit(tags, fields []influx.Pair) error {
	f.lines = append(f.lines, emitted{tags: tags, fields: fields})
	return f.err
}

type fakeRenderer struct {
	readings int
	debugs   int
}

func (f *fakeRenderer) PrintReading(pms7003.Reading) { f.readings++ }
func (f *fakeRenderer) PrintDebug(pms7003.Reading)   { f.debugs++ }

type fakePinger struct {
	pings int
}

func (f *fakePinger) Ping() error { f.pings++; return nil }

func someReading() pms7003.Reading {
	return pms7003.Reading{
		HeaderHigh: pms7003.HeaderHigh, HeaderLow: pms7003.HeaderLow,
		FrameLength: 28,
		PM1CF1:      4, PM25CF1: 7, PM10CF1: 9,
		PM1Atm: 5, PM25Atm: 8, PM10Atm: 10,
	}
}

func TestRunEmitsAndRenders(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	reader := &fakeReader{
		id:      "/dev/ttyUSB0",
		results: []result{{reading: someReading()}},
		onRead:  cancel,
	}
	emitter := &fakeEmitter{}
	renderer := &fakeRenderer{}
	pinger := &fakePinger{}

	m := New([]Reader{reader}, emitter, renderer, pinger)
	require.NoError(t, m.Run(ctx))

	require.Len(t, emitter.lines, 1)
	assert.Equal(t, []influx.Pair{
		{Key: "type", Value: "PMS7003"},
		{Key: "id", Value: "/dev/ttyUSB0"},
	}, emitter.lines[0].tags)
	assert.Equal(t, []influx.Pair{
		{Key: "pm1_0_cf1", Value: uint16(4)},
		{Key: "pm2_5_cf1", Value: uint16(7)},
		{Key: "pm10_0_cf1", Value: uint16(9)},
		{Key: "pm1_0_atm", Value: uint16(5)},
		{Key: "pm2_5_atm", Value: uint16(8)},
		{Key: "pm10_0_atm", Value: uint16(10)},
	}, emitter.lines[0].fields)

	assert.Equal(t, 1, renderer.readings)
	assert.Equal(t, 0, renderer.debugs)
	assert.Equal(t, 1, pinger.pings)
}

func TestRunDebugRendersFullDump(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		id:      "/dev/ttyUSB0",
		results: []result{{reading: someReading()}},
		onRead:  cancel,
	}
	renderer := &fakeRenderer{}

	m := New([]Reader{reader}, &fakeEmitter{}, renderer, &fakePinger{}, WithDebug(true))
	require.NoError(t, m.Run(ctx))

	assert.Equal(t, 1, renderer.debugs)
	assert.Equal(t, 0, renderer.readings)
}

func TestRunLogOnlySkipsConsole(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		id:      "/dev/ttyUSB0",
		results: []result{{reading: someReading()}},
		onRead:  cancel,
	}
	emitter := &fakeEmitter{}
	renderer := &fakeRenderer{}

	m := New([]Reader{reader}, emitter, renderer, &fakePinger{}, WithLogOnly(true))
	require.NoError(t, m.Run(ctx))

	assert.Len(t, emitter.lines, 1, "log-only still emits measurements")
	assert.Equal(t, 0, renderer.readings)
}

func TestRunTimeoutIsTransient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	reader := &fakeReader{
		id: "/dev/ttyUSB0",
		results: []result{
			{err: pms7003.ErrReadTimeout},
			{reading: someReading()},
		},
	}
	reader.onRead = func() {
		if reader.calls == 2 {
			cancel()
		}
	}
	emitter := &fakeEmitter{}

	m := New([]Reader{reader}, emitter, &fakeRenderer{}, &fakePinger{})
	require.NoError(t, m.Run(ctx))

	assert.False(t, reader.closed, "timeouts must not drop the reader")
	assert.Len(t, emitter.lines, 1)
}

func TestRunFatalErrorDropsReader(t *testing.T) {
	broken := &fakeReader{
		id:      "/dev/ttyUSB0",
		results: []result{{err: errors.New("device removed")}},
	}

	m := New([]Reader{broken}, &fakeEmitter{}, &fakeRenderer{}, &fakePinger{})
	err := m.Run(context.Background())

	assert.ErrorIs(t, err, ErrNoReaders)
	assert.True(t, broken.closed)
}

func TestRunSurvivingReaderKeepsPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	broken := &fakeReader{
		id:      "/dev/ttyUSB0",
		results: []result{{err: errors.New("device removed")}},
	}
	healthy := &fakeReader{
		id: "/dev/ttyUSB1",
		results: []result{
			{reading: someReading()},
			{reading: someReading()},
		},
	}
	healthy.onRead = func() {
		if healthy.calls == 2 {
			cancel()
		}
	}
	emitter := &fakeEmitter{}

	m := New([]Reader{broken, healthy}, emitter, &fakeRenderer{}, &fakePinger{})
	require.NoError(t, m.Run(ctx))

	assert.True(t, broken.closed)
	assert.False(t, healthy.closed)
	assert.Len(t, emitter.lines, 2)
	assert.Equal(t, influx.Pair{Key: "id", Value: "/dev/ttyUSB1"}, emitter.lines[0].tags[1])
}

func TestRunNoReaders(t *testing.T) {
	m := New(nil, &fakeEmitter{}, &fakeRenderer{}, &fakePinger{})
	assert.ErrorIs(t, m.Run(context.Background()), ErrNoReaders)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &fakeReader{id: "/dev/ttyUSB0"}
	m := New([]Reader{reader}, &fakeEmitter{}, &fakeRenderer{}, &fakePinger{})

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, 0, reader.calls)
}
