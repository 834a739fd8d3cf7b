// Command aqmon polls PMS7003 particulate-matter sensors over serial,
// prints air-quality summaries, and logs measurements in InfluxDB line
// protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aqmon-data/aqmon/internal/config"
	"github.com/aqmon-data/aqmon/internal/console"
	"github.com/aqmon-data/aqmon/internal/discovery"
	"github.com/aqmon-data/aqmon/internal/influx"
	"github.com/aqmon-data/aqmon/internal/logging"
	"github.com/aqmon-data/aqmon/internal/monitor"
	"github.com/aqmon-data/aqmon/internal/version"
	"github.com/aqmon-data/aqmon/internal/watchdog"
)

var (
	flagPort       string
	flagDebug      bool
	flagLogOnly    bool
	flagLogPath    string
	flagConfigFile string
)

var rootCmd = &cobra.Command{
	Use:           "aqmon",
	Short:         "Air-quality monitor for PMS7003 particulate-matter sensors",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&flagPort, "port", "",
		"Location of PMS7003 TTY device (default: scan possible ports)")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false,
		"Print debug data from the device")
	rootCmd.Flags().BoolVar(&flagLogOnly, "log-only", false,
		"Only log to the influxdb log file; nothing on stdout")
	rootCmd.Flags().StringVar(&flagLogPath, "log-path", "measurements.log",
		"Location where measurement logs are written")
	rootCmd.Flags().StringVar(&flagConfigFile, "config", "",
		"Optional TOML configuration file")
}

// resolveConfig layers CLI flags over the optional config file over the
// defaults.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if flagConfigFile != "" {
		loaded, err := config.Load(flagConfigFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("port") {
		cfg.Port = flagPort
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = flagDebug
	}
	if cmd.Flags().Changed("log-only") {
		cfg.LogOnly = flagLogOnly
	}
	if cmd.Flags().Changed("log-path") {
		cfg.LogPath = flagLogPath
	}

	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	log := logging.New(cfg.Debug)
	defer log.Sync()

	log.Debug("looking for possible PMS7003 devices")
	results := discovery.Find(cfg.Port, discovery.WithLogger(log))
	if len(results) == 0 {
		pterm.FgRed.Println("no serial devices found. is your device plugged in? did you install drivers?")
		return fmt.Errorf("no serial devices found")
	}

	for _, r := range results {
		if r.Reader == nil {
			pterm.FgYellow.Printfln("error on %s %s: %v", r.Desc, r.Port, r.Err)
		}
	}

	readers := discovery.Readers(results)
	if len(readers) == 0 {
		pterm.FgRed.Println("no PMS7003 devices found; resolve any errors printed above and try again")
		return fmt.Errorf("no PMS7003 devices found")
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	emitter := influx.NewFileEmitter(cfg.LogPath, cfg.RotateSizeMB, cfg.RotateBackups,
		influx.WithMeasurement(cfg.Measurement))
	defer emitter.Close()
	pterm.FgBlue.Printfln("writing influxdb measurement %s to %s", emitter.Measurement(), emitter.Path())

	polled := make([]monitor.Reader, 0, len(readers))
	for _, r := range readers {
		pterm.FgGreen.Printfln("beginning to read data from %s...", r.ID())
		polled = append(polled, r)
	}

	// under systemd this reports readiness; elsewhere it is a no-op
	wd := watchdog.New()
	if err := wd.Ready(); err != nil {
		log.Warn("watchdog readiness notification failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon := monitor.New(polled, emitter, console.NewRenderer(nil), wd,
		monitor.WithDebug(cfg.Debug),
		monitor.WithLogOnly(cfg.LogOnly),
		monitor.WithLogger(log),
	)
	return mon.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
