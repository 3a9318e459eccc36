// Package config holds the process-wide Configuration the core requires
// (§6 of the RTPS/DDS specification): a domain tag, an optional bind
// interface, and the DATAFRAG fragment size. Loading richer QoS profiles
// from XML/JSON is an external concern left to the application; this
// package only loads and validates these few process-wide knobs.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Configuration is the process-wide configuration consumed by the
// participant factory when it creates a DomainParticipant.
type Configuration struct {
	// DomainTag is passed through to each participant's configuration.
	// Discovery does not compare domain tags, so participants with
	// different tags on the same domain ID still discover one another.
	DomainTag string `mapstructure:"domain_tag" yaml:"domain_tag"`

	// InterfaceName, when set, names the network interface the
	// multicast group is joined on. The unicast socket still listens on
	// all interfaces.
	InterfaceName string `mapstructure:"interface_name" yaml:"interface_name"`

	// FragmentSize is the configured DATAFRAG payload size in octets.
	// It is loaded and validated only; no component reads it, and
	// writers do not fragment samples.
	FragmentSize uint16 `mapstructure:"fragment_size" yaml:"fragment_size" validate:"gt=0"`
}

// DefaultConfiguration returns the configuration defaults named in §6.
func DefaultConfiguration() Configuration {
	return Configuration{
		DomainTag:    "",
		FragmentSize: 1344,
	}
}

var validate = validator.New()

// Validate checks the configuration's struct tags.
func (c Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load reads a Configuration from the given viper instance, applying
// defaults for any unset field. Callers typically point v at a file via
// v.SetConfigFile and/or environment variables via v.AutomaticEnv with a
// prefix of their choosing before calling Load.
func Load(v *viper.Viper) (Configuration, error) {
	cfg := DefaultConfiguration()

	v.SetDefault("domain_tag", cfg.DomainTag)
	v.SetDefault("fragment_size", cfg.FragmentSize)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Configuration{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Configuration{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.InterfaceName = strings.TrimSpace(cfg.InterfaceName)

	if err := cfg.Validate(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}
