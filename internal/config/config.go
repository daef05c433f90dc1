package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"navsim/internal/gps"
	"navsim/internal/route"
	"navsim/internal/trajectory"
)

type Config struct {
	Log        LogConfig        `yaml:"log"`
	NMEA       NMEAConfig       `yaml:"nmea"`
	Resample   ResampleConfig   `yaml:"resample"`
	Sim        SimConfig        `yaml:"sim"`
	SpeedTable route.SpeedTable `yaml:"speed_table"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// File enables a rotating log file next to stderr output.
	File       string `yaml:"file"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type NMEAConfig struct {
	VerifyChecksum bool `yaml:"verify_checksum"`
}

type ResampleConfig struct {
	DefaultSpeedKmh float64 `yaml:"default_speed_kmh"`
	GPSRounding     string  `yaml:"gps_rounding"`
	// Start is an RFC 3339 timestamp for the first step. Empty means now.
	Start string `yaml:"start"`
}

type SimConfig struct {
	OffRouteM float64      `yaml:"off_route_m"`
	Record    RecordConfig `yaml:"record"`
	Replay    ReplayConfig `yaml:"replay"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

// ReplayConfig paces the simulation against a recorded trajectory log.
type ReplayConfig struct {
	Enable bool    `yaml:"enable"`
	Path   string  `yaml:"path"`
	Speed  float64 `yaml:"speed"`
	Loop   bool    `yaml:"loop"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates. Empty input yields the
// defaults.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, decodeError(err)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if _, err := cfg.Log.GetLevel(); err != nil {
		return Config{}, err
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
	}
	if cfg.Log.MaxAgeDays < 0 {
		return Config{}, fmt.Errorf("log.max_age_days must be >= 0")
	}

	if cfg.Resample.DefaultSpeedKmh == 0 {
		cfg.Resample.DefaultSpeedKmh = route.DefaultVehicleMaxSpeed
	}
	if cfg.Resample.DefaultSpeedKmh < 0 {
		return Config{}, fmt.Errorf("resample.default_speed_kmh must be > 0")
	}
	if cfg.Resample.GPSRounding == "" {
		cfg.Resample.GPSRounding = trajectory.RoundTruncate.String()
	}
	if _, err := trajectory.ParseRounding(cfg.Resample.GPSRounding); err != nil {
		return Config{}, fmt.Errorf("resample.gps_rounding must be one of truncate, nearest, carry")
	}
	if cfg.Resample.Start != "" {
		if _, err := time.Parse(time.RFC3339, cfg.Resample.Start); err != nil {
			return Config{}, fmt.Errorf("resample.start must be an RFC 3339 timestamp")
		}
	}

	if cfg.Sim.OffRouteM == 0 {
		cfg.Sim.OffRouteM = 50
	}
	if cfg.Sim.OffRouteM < 0 {
		return Config{}, fmt.Errorf("sim.off_route_m must be > 0")
	}
	if cfg.Sim.Record.Enable && cfg.Sim.Record.Path == "" {
		return Config{}, fmt.Errorf("sim.record.path is required when sim.record.enable is true")
	}
	if cfg.Sim.Replay.Enable {
		if cfg.Sim.Replay.Path == "" {
			return Config{}, fmt.Errorf("sim.replay.path is required when sim.replay.enable is true")
		}
		if cfg.Sim.Replay.Speed == 0 {
			cfg.Sim.Replay.Speed = 1
		}
		if cfg.Sim.Replay.Speed < 0 {
			return Config{}, fmt.Errorf("sim.replay.speed must be > 0")
		}
	}
	if cfg.Sim.Record.Enable && cfg.Sim.Replay.Enable {
		return Config{}, fmt.Errorf("sim.record and sim.replay cannot both be enabled")
	}

	if cfg.SpeedTable == nil {
		cfg.SpeedTable = route.DefaultCarSpeeds()
	}
	keys := make([]string, 0, len(cfg.SpeedTable))
	for k := range cfg.SpeedTable {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if cfg.SpeedTable[k] <= 0 {
			return Config{}, fmt.Errorf("speed_table.%s must be > 0", k)
		}
	}

	return cfg, nil
}

// GetLevel maps the configured level name to a logrus level.
func (c LogConfig) GetLevel() (log.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(c.Level)) {
	case "DEBUG":
		return log.DebugLevel, nil
	case "INFO", "":
		return log.InfoLevel, nil
	case "WARN", "WARNING":
		return log.WarnLevel, nil
	case "ERROR":
		return log.ErrorLevel, nil
	}
	return log.InfoLevel, fmt.Errorf("log.level must be one of debug, info, warn, error")
}

// ChecksumPolicy returns the decoder policy for nmea.verify_checksum.
func (c NMEAConfig) ChecksumPolicy() gps.ChecksumPolicy {
	if c.VerifyChecksum {
		return gps.ChecksumVerify
	}
	return gps.ChecksumIgnore
}

// Options returns resampler options. Parse has already validated the fields.
func (c ResampleConfig) Options() trajectory.Options {
	rounding, _ := trajectory.ParseRounding(c.GPSRounding)
	var start time.Time
	if c.Start != "" {
		start, _ = time.Parse(time.RFC3339, c.Start)
	}
	return trajectory.Options{
		DefaultSpeed: c.DefaultSpeedKmh,
		Start:        start,
		Rounding:     rounding,
	}
}

var linePrefix = regexp.MustCompile(`^line \d+: `)

func decodeError(err error) error {
	var te *yaml.TypeError
	if !errors.As(err, &te) {
		return err
	}
	unknown := make([]string, 0, len(te.Errors))
	for _, e := range te.Errors {
		msg := linePrefix.ReplaceAllString(e, "")
		if !strings.HasPrefix(msg, "field ") || !strings.Contains(msg, " not found in type ") {
			return err
		}
		unknown = append(unknown, msg)
	}
	return fmt.Errorf("config contains unknown fields: %s", strings.Join(unknown, "; "))
}
