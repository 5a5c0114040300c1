package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional atomgen.yaml file. Flags given on the command line
// override its values.
type Config struct {
	Format    string `yaml:"format,omitempty"`
	Verbose   bool   `yaml:"verbose,omitempty"`
	Module    string `yaml:"module,omitempty"`
	Container string `yaml:"container,omitempty"`
	Output    string `yaml:"output,omitempty"`
	DB        string `yaml:"db,omitempty"`
}

// LoadConfig reads a config file. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Format != "" && !isValidFormat(cfg.Format) {
		return nil, fmt.Errorf("config %s: invalid format %q: must be one of %v", path, cfg.Format, ValidFormats)
	}
	return cfg, nil
}

// stringSetting returns the flag value when the flag was set explicitly,
// otherwise the config value, otherwise the flag default.
func stringSetting(changed bool, flagValue, configValue string) string {
	if changed || configValue == "" {
		return flagValue
	}
	return configValue
}
