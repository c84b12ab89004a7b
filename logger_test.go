package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerFormats(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, line string)
	}{
		{"json", func(t *testing.T, line string) {
			var m map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(line), &m))
			assert.Equal(t, "Compiled executable", m["msg"])
			assert.Equal(t, "square", m["program"])
		}},
		{"logfmt", func(t *testing.T, line string) {
			assert.Contains(t, line, `msg="Compiled executable"`)
			assert.Contains(t, line, "program=square")
		}},
		{"console", func(t *testing.T, line string) {
			assert.Contains(t, line, "Compiled executable")
			assert.Contains(t, line, `"program": "square"`)
		}},
		// a bytes.Buffer is never a terminal
		{"auto", func(t *testing.T, line string) {
			assert.Contains(t, line, `msg="Compiled executable"`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := NewLogger(&buf, tt.format, zapcore.InfoLevel)
			require.NoError(t, err)
			log.Debug("hidden")
			log.Info("Compiled executable", zap.String("program", "square"))
			require.NoError(t, log.Sync())

			assert.NotContains(t, buf.String(), "hidden")
			tt.check(t, buf.String())
		})
	}
}

func TestNewLoggerUnknownFormat(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, "xml", zapcore.InfoLevel)
	assert.Error(t, err)
}
