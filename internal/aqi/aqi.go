// Package aqi converts PM2.5 mass concentrations to the US EPA Air
// Quality Index.
//
// https://en.wikipedia.org/wiki/Air_quality_index#Computing_the_AQI
package aqi

import "math"

// breakpoint is one row of the EPA PM2.5 conversion table: a
// concentration band in µg/m³ and the index band it maps onto.
type breakpoint struct {
	cLow, cHigh float64
	iLow, iHigh int
}

var breakpoints = []breakpoint{
	{0, 12.0, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 350.4, 301, 400},
	{350.5, 500.4, 401, 500},
}

// MaxAQI is returned for concentrations beyond the top breakpoint.
const MaxAQI = 500

// FromPM25 returns the AQI for a PM2.5 concentration in µg/m³.
// Readings beyond the scale clamp to the scale ends.
func FromPM25(pm25 float64) int {
	if pm25 <= 0 {
		return 0
	}

	for _, b := range breakpoints {
		if pm25 <= b.cHigh {
			ratio := float64(b.iHigh-b.iLow) / (b.cHigh - b.cLow)
			return int(math.Round(ratio*(pm25-b.cLow) + float64(b.iLow)))
		}
	}
	return MaxAQI
}

// Level is an EPA AQI category.
type Level int

const (
	Good Level = iota
	Moderate
	UnhealthySensitive
	Unhealthy
	VeryUnhealthy
	Hazardous
)

// LevelFor returns the category for an AQI value.
func LevelFor(aqi int) Level {
	switch {
	case aqi < 50:
		return Good
	case aqi < 100:
		return Moderate
	case aqi < 150:
		return UnhealthySensitive
	case aqi < 200:
		return Unhealthy
	case aqi < 300:
		return VeryUnhealthy
	default:
		return Hazardous
	}
}

func (l Level) String() string {
	switch l {
	case Good:
		return "Good"
	case Moderate:
		return "Moderate"
	case UnhealthySensitive:
		return "Unhealthy for Certain Groups"
	case Unhealthy:
		return "Unhealthy"
	case VeryUnhealthy:
		return "Very Unhealthy"
	case Hazardous:
		return "Hazardous"
	default:
		return "unknown"
	}
}
