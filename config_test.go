package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calcc.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
backend = "native"
opt-level = 1
link-timeout = "30s"
keep-object = true
log-level = "debug"
log-format = "json"
history-file = "/tmp/calcc-history"
`)
	c, err := LoadConfigFile(path)
	require.NoError(t, err)

	want := NewConfig()
	want.Backend = "native"
	want.OptLevel = 1
	want.LinkTimeout = 30 * time.Second
	want.KeepObject = true
	want.LogLevel = zapcore.DebugLevel
	want.LogFormat = "json"
	want.HistoryFile = "/tmp/calcc-history"
	assert.Equal(t, want, c)
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfigFile(writeConfig(t, `optlevel = 3`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys: optlevel")

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Equal(t, KindIO, KindOf(err))

	_, err = LoadConfigFile(writeConfig(t, `backend = `))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"opt level low", func(c *Config) { c.OptLevel = -1 }},
		{"opt level high", func(c *Config) { c.OptLevel = 4 }},
		{"target", func(c *Config) { c.Target = "pdp11-unix" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

// resolve binds a fresh Config to a flag set, parses args and resolves
// the result over base
func resolve(t *testing.T, base Config, args ...string) Config {
	t.Helper()
	c := NewConfig()
	opts := c.Opts()
	v := NewViper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindOptions(v, fs, opts)
	require.NoError(t, fs.Parse(args))
	require.NoError(t, ResolveOptions(v, opts, base.Opts()))
	return c
}

func TestResolveOptionsPrecedence(t *testing.T) {
	file := NewConfig()
	file.OptLevel = 1
	file.Backend = "native"
	file.LogLevel = zapcore.InfoLevel

	// file over defaults
	c := resolve(t, file)
	assert.Equal(t, 1, c.OptLevel)
	assert.Equal(t, "native", c.Backend)
	assert.Equal(t, zapcore.InfoLevel, c.LogLevel)
	assert.Equal(t, "auto", c.LogFormat)

	// environment over file
	t.Setenv("CALCC_OPT_LEVEL", "3")
	t.Setenv("CALCC_LOG_LEVEL", "error")
	t.Setenv("CALCC_KEEP_OBJECT", "true")
	c = resolve(t, file)
	assert.Equal(t, 3, c.OptLevel)
	assert.Equal(t, zapcore.ErrorLevel, c.LogLevel)
	assert.True(t, c.KeepObject)
	assert.Equal(t, "native", c.Backend)

	// flags over environment
	c = resolve(t, file, "--opt-level=0", "--backend=cc", "--log-level=debug", "--link-timeout=5s")
	assert.Equal(t, 0, c.OptLevel)
	assert.Equal(t, "cc", c.Backend)
	assert.Equal(t, zapcore.DebugLevel, c.LogLevel)
	assert.Equal(t, 5*time.Second, c.LinkTimeout)
}

func TestResolveOptionsBadLevel(t *testing.T) {
	t.Setenv("CALCC_LOG_LEVEL", "loud")
	c, d := NewConfig(), NewConfig()
	opts := c.Opts()
	v := NewViper()
	BindOptions(v, pflag.NewFlagSet("test", pflag.ContinueOnError), opts)
	err := ResolveOptions(v, opts, d.Opts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log-level")
}

func TestLevelVar(t *testing.T) {
	var level zapcore.Level
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	LevelVar(fs, &level, "log-level", zapcore.WarnLevel, "")
	assert.Equal(t, zapcore.WarnLevel, level)
	assert.Equal(t, "Log-Level", fs.Lookup("log-level").Value.Type())

	require.NoError(t, fs.Parse([]string{"--log-level", "info"}))
	assert.Equal(t, zapcore.InfoLevel, level)
	assert.Error(t, fs.Set("log-level", "chatty"))
}
