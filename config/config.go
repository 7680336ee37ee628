// Package config loads the receiver application settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"si4732radio/radio"

	"gopkg.in/yaml.v3"
)

// Patch sources.
const (
	PatchNone   = "none"
	PatchEEPROM = "eeprom"
	PatchFile   = "file"
)

// Seek directions run once the radio is up.
const (
	SeekNone = ""
	SeekUp   = "up"
	SeekDown = "down"
)

// Config holds all application configuration.
type Config struct {
	Bus     BusConfig     `yaml:"bus"`
	Radio   RadioConfig   `yaml:"radio"`
	Patch   PatchConfig   `yaml:"patch"`
	Display DisplayConfig `yaml:"display"`
	Feed    FeedConfig    `yaml:"feed"`
	Logging LoggingConfig `yaml:"logging"`

	// Seek is "up", "down" or empty to stay on the configured frequency.
	Seek string `yaml:"seek"`
}

type BusConfig struct {
	// I2CBus is the bus number, -1 for the adaptor default.
	I2CBus   int    `yaml:"i2c_bus"`
	ResetPin string `yaml:"reset_pin"`

	// AlternativeAddress selects 0x63, for boards with SEN pulled high.
	AlternativeAddress bool `yaml:"alternative_address"`
}

type RadioConfig struct {
	Mode         string `yaml:"mode"` // FM, AM, LSB or USB
	Frequency    uint16 `yaml:"frequency"`
	FmAmAntCap   uint16 `yaml:"fm_am_antcap"`
	SsbAntCap    uint16 `yaml:"ssb_antcap"`
	MinFrequency uint16 `yaml:"min_frequency"`
	MaxFrequency uint16 `yaml:"max_frequency"`
	Step         uint8  `yaml:"step"`
	Stereo       bool   `yaml:"stereo"`
	AgcOn        bool   `yaml:"agc_on"`
	AgcGain      uint8  `yaml:"agc_gain"`
	FmAmFilter   uint8  `yaml:"fm_am_filter"`
	SsbFilter    uint8  `yaml:"ssb_filter"`
	BfoOffset    int16  `yaml:"bfo_offset"` // Hz
	Volume       uint8  `yaml:"volume"`
	Mute         bool   `yaml:"mute"`
}

type PatchConfig struct {
	Source  string `yaml:"source"`  // "none", "eeprom" or "file"
	Address uint16 `yaml:"address"` // start of the patch header in the EEPROM
	File    string `yaml:"file"`    // patch store image, header included
}

type DisplayConfig struct {
	Enabled bool `yaml:"enabled"`
	Columns int  `yaml:"columns"`
	Rows    int  `yaml:"rows"`
}

type FeedConfig struct {
	// ListenAddr serves the status feed on /ws, empty disables it.
	ListenAddr string `yaml:"listen_addr"`
}

type LoggingConfig struct {
	// File is the rotated log file, empty logs to stdout only.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Debug      bool   `yaml:"debug"`
}

// Default returns a config tuned to 80.5 MHz on the Japanese FM band.
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			I2CBus:   -1,
			ResetPin: radio.DEFAULT_RESET_PIN,
		},
		Radio: RadioConfig{
			Mode:         "FM",
			Frequency:    8050,
			MinFrequency: 7600,
			MaxFrequency: 9500,
			Step:         10,
			Stereo:       true,
			AgcOn:        true,
			SsbAntCap:    1,
			SsbFilter:    1,
			Volume:       40,
		},
		Patch: PatchConfig{
			Source: PatchNone,
		},
		Display: DisplayConfig{
			Enabled: true,
			Columns: 16,
			Rows:    2,
		},
		Feed: FeedConfig{
			ListenAddr: ":8080",
		},
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path over the defaults. A missing file gives the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values the drivers can not fix up themselves.
func (c *Config) Validate() error {
	mode, ok := radio.ParseMode(c.Radio.Mode)
	if !ok {
		return fmt.Errorf("radio mode %q unknown, use FM, AM, LSB or USB", c.Radio.Mode)
	}

	if c.Radio.MinFrequency > c.Radio.MaxFrequency {
		return fmt.Errorf("radio min_frequency %d is above max_frequency %d", c.Radio.MinFrequency, c.Radio.MaxFrequency)
	}

	switch c.Patch.Source {
	case PatchNone:
		if mode.IsSSB() {
			return fmt.Errorf("radio mode %s needs a patch source", mode)
		}
	case PatchEEPROM:
	case PatchFile:
		if c.Patch.File == "" {
			return errors.New("patch source file needs patch.file")
		}
	default:
		return fmt.Errorf("patch source %q unknown, use none, eeprom or file", c.Patch.Source)
	}

	switch c.Seek {
	case SeekNone, SeekUp, SeekDown:
	default:
		return fmt.Errorf("seek %q unknown, use up, down or leave it empty", c.Seek)
	}

	if c.Seek != SeekNone && mode.IsSSB() {
		return fmt.Errorf("seek is not available in %s", mode)
	}

	return nil
}

// ToRadio converts the radio section for the driver.
func (c *Config) ToRadio() (*radio.RadioConfig, error) {
	mode, ok := radio.ParseMode(c.Radio.Mode)
	if !ok {
		return nil, fmt.Errorf("radio mode %q unknown", c.Radio.Mode)
	}

	return &radio.RadioConfig{
		Mode:          mode,
		Frequency:     c.Radio.Frequency,
		FmAmAntCap:    c.Radio.FmAmAntCap,
		SsbAntCap:     c.Radio.SsbAntCap,
		MinFrequency:  c.Radio.MinFrequency,
		MaxFrequency:  c.Radio.MaxFrequency,
		StepFrequency: c.Radio.Step,
		Stereo:        c.Radio.Stereo,
		AgcOn:         c.Radio.AgcOn,
		AgcGain:       c.Radio.AgcGain,
		FmAmFilter:    c.Radio.FmAmFilter,
		SsbFilter:     c.Radio.SsbFilter,
		BfoOffset:     c.Radio.BfoOffset,
	}, nil
}
