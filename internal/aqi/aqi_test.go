package aqi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPM25(t *testing.T) {
	tests := []struct {
		name string
		pm25 float64
		want int
	}{
		{"zero", 0, 0},
		{"negative clamps to zero", -3, 0},
		{"clean air", 5.0, 21},
		{"top of good band", 12.0, 50},
		{"bottom of moderate band", 12.1, 51},
		{"top of moderate band", 35.4, 100},
		{"unhealthy for sensitive groups", 40.0, 112},
		{"bottom of unhealthy band", 55.5, 151},
		{"top of unhealthy band", 150.4, 200},
		{"hazardous", 400.0, 434},
		{"top of scale", 500.4, 500},
		{"beyond the scale clamps", 800.0, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromPM25(tt.pm25))
		})
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		aqi  int
		want Level
	}{
		{0, Good},
		{49, Good},
		{50, Moderate},
		{99, Moderate},
		{100, UnhealthySensitive},
		{149, UnhealthySensitive},
		{150, Unhealthy},
		{199, Unhealthy},
		{200, VeryUnhealthy},
		{299, VeryUnhealthy},
		{300, Hazardous},
		{500, Hazardous},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.aqi), "aqi %d", tt.aqi)
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "Good", Good.String())
	assert.Equal(t, "Unhealthy for Certain Groups", UnhealthySensitive.String())
	assert.Equal(t, "Hazardous", Hazardous.String())
}
