// Package discovery scans candidate serial ports for attached PMS7003
// sensors. Each candidate is probed with a trial read through the
// public reader API, so probing policy stays decoupled from the frame
// decode engine.
//
// A port that opens but stays silent for the probe deadline is
// reported as ErrNoData and skipped: during discovery, silence is
// evidence the device is not a PMS7003. The same silence during
// operational polling is a transient condition (pms7003.ErrReadTimeout)
// that the poll loop retries; the two cases deliberately carry
// distinct error values.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"github.com/aqmon-data/aqmon/internal/pms7003"
)

// Typed per-port probe failures.
var (
	ErrNoSuchPort   = errors.New("no such port")
	ErrAccessDenied = errors.New("access denied")
	ErrNoData       = errors.New("no data")
)

// Result is the outcome of probing one candidate port. Exactly one of
// Reader and Err is set.
type Result struct {
	Port string
	Desc string
	HWID string

	Reader *pms7003.Reader
	Err    error
}

// Option configures a scan.
type Option func(*config)

type config struct {
	list          func() ([]Result, error)
	readerOptions []pms7003.Option
	log           *zap.Logger
}

// WithLister replaces system port enumeration, for tests.
func WithLister(list func() ([]Result, error)) Option {
	return func(c *config) { c.list = list }
}

// WithReaderOptions passes options through to each probed reader,
// typically an injected opener or clock in tests.
func WithReaderOptions(opts ...pms7003.Option) Option {
	return func(c *config) { c.readerOptions = opts }
}

// WithLogger sets the logger for scan diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) { c.log = log }
}

// listSystemPorts enumerates serial ports via the OS, carrying USB
// metadata into Desc/HWID where available.
func listSystemPorts() ([]Result, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	results := make([]Result, 0, len(ports))
	for _, p := range ports {
		r := Result{Port: p.Name, Desc: p.Product}
		if p.IsUSB {
			r.HWID = fmt.Sprintf("USB VID:PID=%s:%s SER=%s", p.VID, p.PID, p.SerialNumber)
		}
		results = append(results, r)
	}
	return results, nil
}

// Find probes candidate ports for PMS7003 sensors and returns one
// Result per candidate. When only is non-empty, exactly that path is
// probed; otherwise every enumerable serial port is. Successful
// results carry an open, already-proven reader the caller now owns.
func Find(only string, opts ...Option) []Result {
	cfg := config{
		list: listSystemPorts,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.log.Named("discovery")

	var candidates []Result
	if only != "" {
		log.Debug("probing specified port", zap.String("port", only))
		candidates = []Result{{Port: only, Desc: "user-specified"}}
	} else {
		log.Debug("listing all com ports")
		listed, err := cfg.list()
		if err != nil {
			log.Error("port enumeration failed", zap.Error(err))
			return nil
		}
		candidates = listed
	}

	log.Debug("checking ports for PMS7003 devices", zap.Int("candidates", len(candidates)))
	for i := range candidates {
		probe(&candidates[i], cfg, log)
	}
	return candidates
}

func probe(r *Result, cfg config, log *zap.Logger) {
	log.Debug("checking port", zap.String("port", r.Port))

	if _, err := os.Stat(r.Port); errors.Is(err, fs.ErrNotExist) {
		r.Err = ErrNoSuchPort
		return
	}

	reader, err := pms7003.Open(r.Port, cfg.readerOptions...)
	if err != nil {
		r.Err = classifyOpenError(err)
		return
	}

	if _, err := reader.ReadOne(); err != nil {
		reader.Close()
		if errors.Is(err, pms7003.ErrReadTimeout) {
			r.Err = ErrNoData
		} else {
			r.Err = err
		}
		return
	}

	r.Reader = reader
}

// classifyOpenError maps driver open failures onto the typed probe
// errors. go.bug.st/serial reports failures as PortError codes rather
// than wrapped os errors, so both shapes are checked.
func classifyOpenError(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return ErrAccessDenied
	}
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNoSuchPort
	}

	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound:
			return ErrNoSuchPort
		case serial.PermissionDenied:
			return ErrAccessDenied
		}
	}
	return err
}

// Readers extracts the successfully probed readers from results.
func Readers(results []Result) []*pms7003.Reader {
	var readers []*pms7003.Reader
	for _, r := range results {
		if r.Reader != nil {
			readers = append(readers, r.Reader)
		}
	}
	return readers
}
