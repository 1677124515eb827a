package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", "json", "console"} {
		l, err := New("debug", format)
		require.NoError(t, err, format)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	}
	_, err := New("info", "xml")
	assert.ErrorContains(t, err, "unsupported")
}
