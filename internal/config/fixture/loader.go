// Package fixture turns a YAML tree on disk into a *config.Config. It is a
// convenience for tests, examples and small deployments that keep their
// configuration in a file — not a general CLI or TOML front door (that
// surface is explicitly out of scope for this module); it only produces
// the same config.Definition a caller could otherwise build by hand and
// hand to config.New.
package fixture

import (
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"

	"github.com/webnis/webnis/internal/config"
)

// Load reads the YAML file at path, decodes it into a config.Definition,
// and builds a validated config.Config from it.
func Load(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML document already in memory into a validated
// config.Config.
func Parse(data []byte) (*config.Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("fixture: decode yaml: %w", err)
	}

	var def config.Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &def,
	})
	if err != nil {
		return nil, fmt.Errorf("fixture: build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("fixture: decode definition: %w", err)
	}

	return config.New(&def)
}

// LoadDaemon reads the YAML file at path and builds a validated
// config.DaemonConfig from it — the binding daemon's own front door,
// parallel to Load but decoding into config.DaemonDefinition.
func LoadDaemon(path string) (*config.DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: read %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("fixture: decode yaml: %w", err)
	}

	var def config.DaemonDefinition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &def,
	})
	if err != nil {
		return nil, fmt.Errorf("fixture: build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("fixture: decode daemon definition: %w", err)
	}

	return config.NewDaemonConfig(&def)
}
