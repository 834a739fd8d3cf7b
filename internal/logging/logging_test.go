package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewLevelGating(t *testing.T) {
	quiet := New(false)
	assert.False(t, quiet.Core().Enabled(zapcore.DebugLevel))
	assert.False(t, quiet.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, quiet.Core().Enabled(zapcore.ErrorLevel))

	verbose := New(true)
	assert.True(t, verbose.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, verbose.Core().Enabled(zapcore.ErrorLevel))
}
