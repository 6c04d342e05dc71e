// Package config holds the build run configuration, resolved from flags,
// an optional YAML file, and environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvSecretKey is the environment variable consulted when no secret key is
// given explicitly.
const EnvSecretKey = "SCW_SECRET_KEY"

// Defaults applied by ApplyDefaults.
const (
	DefaultRegion       = "fr-par-1"
	DefaultInstanceType = "DEV1-M"
	// Decimal gigabytes: the instance API sizes volumes in decimal, and
	// datasize.GB is the binary unit (2^30).
	DefaultBootstrapDiskSize = datasize.ByteSize(20_000_000_000)
	DefaultBootstrapDir      = "bootstrap"
	DefaultBootstrapCommand  = "bash /tmp/nix-bootstrap.sh"
	DefaultPollInterval      = 1 * time.Second
	DefaultTimeout           = 1 * time.Hour
)

// Config holds the application configuration.
type Config struct {
	// SecretKey authenticates against the Scaleway APIs. Required; falls
	// back to the SCW_SECRET_KEY environment variable.
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`

	// Region is the target zone for all created resources.
	Region string `mapstructure:"region" yaml:"region"`

	// InstanceType is the commercial type of the temporary build server.
	InstanceType string `mapstructure:"instance_type" yaml:"instance_type"`

	// BootstrapDiskSize is the size of the scratch boot volume,
	// e.g. "20GB".
	BootstrapDiskSize datasize.ByteSize `mapstructure:"bootstrap_disk_size" yaml:"bootstrap_disk_size"`

	// BootstrapDir is the local directory whose top-level files are
	// uploaded to the build server before running the bootstrap command.
	BootstrapDir string `mapstructure:"bootstrap_dir" yaml:"bootstrap_dir"`

	// BootstrapCommand is executed on the build server after upload.
	BootstrapCommand string `mapstructure:"bootstrap_command" yaml:"bootstrap_command"`

	// PollInterval is the pause between state polls of servers and
	// snapshots.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`

	// Timeout bounds the whole build run.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// CleanupOnFailure terminates the build server when the run fails.
	// Off by default: a failed bootstrap usually warrants inspecting the
	// machine before tearing it down.
	CleanupOnFailure bool `mapstructure:"cleanup_on_failure" yaml:"cleanup_on_failure"`
}

// Load reads and parses the configuration from a YAML file.
// An empty path yields an empty configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &cfg,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToByteSizeHookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields with their defaults and pulls the secret
// key from the environment when it is not set.
func (c *Config) ApplyDefaults() {
	if c.SecretKey == "" {
		c.SecretKey = os.Getenv(EnvSecretKey)
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.InstanceType == "" {
		c.InstanceType = DefaultInstanceType
	}
	if c.BootstrapDiskSize == 0 {
		c.BootstrapDiskSize = DefaultBootstrapDiskSize
	}
	if c.BootstrapDir == "" {
		c.BootstrapDir = DefaultBootstrapDir
	}
	if c.BootstrapCommand == "" {
		c.BootstrapCommand = DefaultBootstrapCommand
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required (set --secret-key or %s)", EnvSecretKey)
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.InstanceType == "" {
		return fmt.Errorf("instance type is required")
	}
	if c.BootstrapDiskSize < datasize.GB {
		return fmt.Errorf("bootstrap disk size %s is too small, need at least 1GB", c.BootstrapDiskSize)
	}
	return nil
}

// stringToByteSizeHookFunc decodes human-readable sizes ("20GB") into
// datasize.ByteSize values.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFuncType {
	return func(_, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(datasize.ByteSize(0)) {
			return data, nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("invalid size %q: %w", s, err)
		}
		return size, nil
	}
}
