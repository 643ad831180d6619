// Package config loads the on-disk profile configuration: the expected
// firmware version and default delay tuple for one or more named drive
// profiles, read from a TOML file on first run (seeded from an embedded
// default) and cached in package-level state thereafter.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/sergev/fluxweazle/unit"
)

//go:embed default.toml
var defaultConfigData []byte

// Package-level state for the selected profile, populated by Initialize.
var (
	ProfileName     string
	ExpectedVersion unit.Version
	Delays          unit.DelayParams
	profileMap      map[string]Profile
)

// Config is the root of the TOML configuration file.
type Config struct {
	Default string    `toml:"default"`
	Profile []Profile `toml:"profile"`
}

// Profile names one drive's expected firmware version and default delay
// tuple, committed as the session's DelayProfile at construction.
type Profile struct {
	Name          string `toml:"name"`
	FirmwareMajor uint8  `toml:"firmware_major"`
	FirmwareMinor uint8  `toml:"firmware_minor"`
	Select        uint16 `toml:"select"`
	Step          uint16 `toml:"step"`
	SeekSettle    uint16 `toml:"seek_settle"`
	Motor         uint16 `toml:"motor"`
	AutoOff       uint16 `toml:"auto_off"`
}

func (p Profile) version() unit.Version {
	return unit.Version{Major: p.FirmwareMajor, Minor: p.FirmwareMinor}
}

func (p Profile) delays() unit.DelayParams {
	return unit.DelayParams{
		Select:     p.Select,
		Step:       p.Step,
		SeekSettle: p.SeekSettle,
		Motor:      p.Motor,
		AutoOff:    p.AutoOff,
	}
}

// configPath determines the config file path based on the operating
// system: AppData on Windows, the home directory elsewhere.
func configPath() (string, error) {
	var configDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "fluxweazle")
	default:
		configDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home directory: %w", err)
		}
	}

	return filepath.Join(configDir, ".fluxweazle"), nil
}

// Initialize loads and validates the configuration file, creating it from
// the embedded default on first run, and populates ProfileName,
// ExpectedVersion, and Delays from the named default profile.
func Initialize() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		configDir := filepath.Dir(path)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
		}
		if err := os.WriteFile(path, defaultConfigData, 0644); err != nil {
			return fmt.Errorf("failed to create default config file at %s: %w", path, err)
		}
	}

	var conf Config
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return fmt.Errorf("failed to parse TOML config at %s: %w", path, err)
	}
	return load(conf)
}

// LoadBytes parses TOML config data directly, bypassing the filesystem.
// Tests and callers with a config already in memory use this instead of
// Initialize.
func LoadBytes(data []byte) error {
	var conf Config
	if _, err := toml.Decode(string(data), &conf); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return load(conf)
}

func load(conf Config) error {
	if conf.Default == "" {
		return errors.New("`default` key is missing or empty in config")
	}

	var found *Profile
	profileMap = make(map[string]Profile, len(conf.Profile))
	for i := range conf.Profile {
		profileMap[conf.Profile[i].Name] = conf.Profile[i]
		if conf.Profile[i].Name == conf.Default {
			found = &conf.Profile[i]
		}
	}
	if found == nil {
		return fmt.Errorf("default profile %q not found in profile array", conf.Default)
	}

	ProfileName = found.Name
	ExpectedVersion = found.version()
	Delays = found.delays()
	return nil
}

// GetProfile returns the expected firmware version and default delay
// tuple for a named profile. Returns an error if the name is not found.
func GetProfile(name string) (unit.Version, unit.DelayParams, error) {
	p, ok := profileMap[name]
	if !ok {
		return unit.Version{}, unit.DelayParams{}, fmt.Errorf("profile %q not found in configuration", name)
	}
	return p.version(), p.delays(), nil
}
