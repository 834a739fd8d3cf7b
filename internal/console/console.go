// Package console renders readings for humans, tinting PM2.5 and AQI
// by air-quality category.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"

	"github.com/aqmon-data/aqmon/internal/aqi"
	"github.com/aqmon-data/aqmon/internal/pms7003"
)

var levelStyles = map[aqi.Level]*pterm.Style{
	aqi.Good:               pterm.NewStyle(pterm.FgGreen),
	aqi.Moderate:           pterm.NewStyle(pterm.FgYellow),
	aqi.UnhealthySensitive: pterm.NewStyle(pterm.FgLightYellow),
	aqi.Unhealthy:          pterm.NewStyle(pterm.FgRed),
	aqi.VeryUnhealthy:      pterm.NewStyle(pterm.FgLightRed),
	aqi.Hazardous:          pterm.NewStyle(pterm.FgMagenta),
}

// Renderer writes human-readable reading lines to a writer.
type Renderer struct {
	w io.Writer
}

// NewRenderer returns a Renderer writing to w; nil means stdout.
func NewRenderer(w io.Writer) *Renderer {
	if w == nil {
		w = os.Stdout
	}
	return &Renderer{w: w}
}

// PrintReading writes the one-line atmospheric PM summary with the
// derived AQI, colored by category.
func (r *Renderer) PrintReading(reading pms7003.Reading) {
	index := aqi.FromPM25(float64(reading.PM25Atm))
	level := aqi.LevelFor(index)
	style := levelStyles[level]

	fmt.Fprintf(r.w, "PM 1.0: %d  PM 2.5: %s  PM 10: %d  AQI: %s\n",
		reading.PM1Atm,
		style.Sprintf("%d", reading.PM25Atm),
		reading.PM10Atm,
		style.Sprintf("%d (%s)", index, level),
	)
}

// PrintDebug dumps every frame field between rule lines.
func (r *Renderer) PrintDebug(reading pms7003.Reading) {
	rule := "============================================================================"

	fmt.Fprintln(r.w, rule)
	fmt.Fprintf(r.w, "Header : %c %c \t\t | Frame length : %d\n",
		reading.HeaderHigh, reading.HeaderLow, reading.FrameLength)
	fmt.Fprintf(r.w, "PM 1.0 (CF=1) : %d\t | PM 1.0 : %d\n", reading.PM1CF1, reading.PM1Atm)
	fmt.Fprintf(r.w, "PM 2.5 (CF=1) : %d\t | PM 2.5 : %d\n", reading.PM25CF1, reading.PM25Atm)
	fmt.Fprintf(r.w, "PM 10.0 (CF=1) : %d\t | PM 10.0 : %d\n", reading.PM10CF1, reading.PM10Atm)
	fmt.Fprintf(r.w, "0.3um in 0.1L of air : %d\n", reading.Count03um)
	fmt.Fprintf(r.w, "0.5um in 0.1L of air : %d\n", reading.Count05um)
	fmt.Fprintf(r.w, "1.0um in 0.1L of air : %d\n", reading.Count10um)
	fmt.Fprintf(r.w, "2.5um in 0.1L of air : %d\n", reading.Count25um)
	fmt.Fprintf(r.w, "5.0um in 0.1L of air : %d\n", reading.Count50um)
	fmt.Fprintf(r.w, "10.0um in 0.1L of air : %d\n", reading.Count100um)
	fmt.Fprintf(r.w, "Reserved F : %d\n", reading.Reserved)
	fmt.Fprintf(r.w, "CHKSUM : %d\n", reading.Checksum)
	fmt.Fprintln(r.w, rule)
}
