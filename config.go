package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config holds every setting of a calcc session. Values come from, in
// increasing priority: defaults, the TOML file, CALCC_* variables, flags.
type Config struct {
	Backend     string        `toml:"backend"`
	Target      string        `toml:"target"`
	CC          string        `toml:"cc"`
	OptLevel    int           `toml:"opt-level"`
	LinkTimeout time.Duration `toml:"link-timeout"`
	KeepObject  bool          `toml:"keep-object"`
	LogLevel    zapcore.Level `toml:"log-level"`
	LogFormat   string        `toml:"log-format"`
	MetricsPath string        `toml:"metrics-path"`
	HistoryFile string        `toml:"history-file"`
}

// NewConfig returns a new instance of Config with defaults.
func NewConfig() Config {
	return Config{
		Backend:     "auto",
		Target:      "host",
		OptLevel:    2,
		LinkTimeout: DefaultLinkTimeout,
		LogLevel:    zapcore.WarnLevel,
		LogFormat:   "auto",
	}
}

// LoadConfigFile decodes a TOML file over the defaults
func LoadConfigFile(path string) (Config, error) {
	c := NewConfig()
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return c, ioError("read config "+path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return c, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return c, nil
}

// Validate checks values that flags and TOML cannot type-check
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "auto", "console", "logfmt", "json":
	default:
		return fmt.Errorf("unknown log format %q; supported formats are auto, console, logfmt, json", c.LogFormat)
	}
	if c.OptLevel < 0 || c.OptLevel > 3 {
		return fmt.Errorf("opt-level must be between 0 and 3, got %d", c.OptLevel)
	}
	if _, err := ParsePlatform(c.Target); err != nil {
		return err
	}
	return nil
}

// Opt is a single command-line option
type Opt struct {
	DestP   interface{} // pointer to the destination
	Flag    string
	Default interface{}
	Desc    string
}

// Opts describes every Config field as a flag bound to c
func (c *Config) Opts() []Opt {
	d := NewConfig()
	return []Opt{
		{DestP: &c.Backend, Flag: "backend", Default: d.Backend, Desc: "code generator: auto, " + strings.Join(AvailableBackends(), ", ")},
		{DestP: &c.Target, Flag: "target", Default: d.Target, Desc: "target platform as arch-os, e.g. x86_64-linux"},
		{DestP: &c.CC, Flag: "cc", Default: d.CC, Desc: "C compiler and linker driver (default $CC or cc)"},
		{DestP: &c.OptLevel, Flag: "opt-level", Default: d.OptLevel, Desc: "backend optimization level, 0-3"},
		{DestP: &c.LinkTimeout, Flag: "link-timeout", Default: d.LinkTimeout, Desc: "maximum time for one linker run"},
		{DestP: &c.KeepObject, Flag: "keep-object", Default: d.KeepObject, Desc: "keep the object file next to the executable as <output>.o"},
		{DestP: &c.LogLevel, Flag: "log-level", Default: d.LogLevel, Desc: "log level: debug, info, warn, error"},
		{DestP: &c.LogFormat, Flag: "log-format", Default: d.LogFormat, Desc: "log format: auto, console, logfmt, json"},
		{DestP: &c.MetricsPath, Flag: "metrics-path", Default: d.MetricsPath, Desc: "write Prometheus metrics to this file on exit"},
		{DestP: &c.HistoryFile, Flag: "history-file", Default: d.HistoryFile, Desc: "REPL history file (default ~/.calcc_history)"},
	}
}

// NewViper returns a viper instance reading CALCC_* environment variables
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("calcc")
	v.AutomaticEnv()
	// This normalizes "-" to an underscore in env names.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	return v
}

// BindOptions adds opts to fs and registers them with v
func BindOptions(v *viper.Viper, fs *pflag.FlagSet, opts []Opt) {
	for _, o := range opts {
		switch destP := o.DestP.(type) {
		case *string:
			fs.StringVar(destP, o.Flag, o.Default.(string), o.Desc)
		case *int:
			fs.IntVar(destP, o.Flag, o.Default.(int), o.Desc)
		case *bool:
			fs.BoolVar(destP, o.Flag, o.Default.(bool), o.Desc)
		case *time.Duration:
			fs.DurationVar(destP, o.Flag, o.Default.(time.Duration), o.Desc)
		case *zapcore.Level:
			LevelVar(fs, destP, o.Flag, o.Default.(zapcore.Level), o.Desc)
		default:
			panic(fmt.Errorf("unknown destination type %T", o.DestP))
		}
		if err := v.BindPFlag(o.Flag, fs.Lookup(o.Flag)); err != nil {
			panic(err)
		}
	}
}

// ResolveOptions stores the effective value of every option in its
// destination. base supplies the values below the environment, usually
// the defaults merged with a config file; it must list the same flags.
func ResolveOptions(v *viper.Viper, opts, base []Opt) error {
	for i, o := range opts {
		v.SetDefault(o.Flag, deref(base[i].DestP))
		switch destP := o.DestP.(type) {
		case *string:
			*destP = v.GetString(o.Flag)
		case *int:
			*destP = v.GetInt(o.Flag)
		case *bool:
			*destP = v.GetBool(o.Flag)
		case *time.Duration:
			*destP = v.GetDuration(o.Flag)
		case *zapcore.Level:
			if err := destP.Set(v.GetString(o.Flag)); err != nil {
				return errors.Wrapf(err, "invalid %s", o.Flag)
			}
		}
	}
	return nil
}

func deref(p interface{}) interface{} {
	switch p := p.(type) {
	case *string:
		return *p
	case *int:
		return *p
	case *bool:
		return *p
	case *time.Duration:
		return *p
	case *zapcore.Level:
		return p.String()
	}
	return nil
}

type levelValue zapcore.Level

func newLevelValue(val zapcore.Level, p *zapcore.Level) *levelValue {
	*p = val
	return (*levelValue)(p)
}

func (l *levelValue) String() string {
	return zapcore.Level(*l).String()
}

func (l *levelValue) Set(s string) error {
	var level zapcore.Level
	if err := level.Set(s); err != nil {
		return fmt.Errorf("unknown log level; supported levels are debug, info, warn, error")
	}
	*l = levelValue(level)
	return nil
}

func (l *levelValue) Type() string {
	return "Log-Level"
}

// LevelVar defines a zapcore.Level flag with specified name, default value, and usage string.
func LevelVar(fs *pflag.FlagSet, p *zapcore.Level, name string, value zapcore.Level, usage string) {
	fs.Var(newLevelValue(value, p), name, usage)
}
