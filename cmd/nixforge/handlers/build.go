// Package handlers implements the execution logic behind the CLI commands.
// Collaborators are created through package-level factory variables so tests
// can swap them out.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/c2h5oh/datasize"

	"github.com/nixforge/nixforge/internal/config"
	"github.com/nixforge/nixforge/internal/platform/scaleway"
	"github.com/nixforge/nixforge/internal/provisioning/image"
)

// BuildOptions carries the build command's flag values. Zero values mean
// "not set": the config file and defaults fill the gaps.
type BuildOptions struct {
	ConfigFile        string
	SecretKey         string
	Region            string
	InstanceType      string
	BootstrapDiskSize string
	BootstrapDir      string
	CleanupOnFailure  bool
	Timeout           time.Duration
}

// ImageBuilder interface for testing - matches image.Builder.
type ImageBuilder interface {
	Build(ctx context.Context) (*scaleway.Image, error)
}

// Factory function variables - can be replaced in tests.
var (
	newAPIClient = func(cfg *config.Config) scaleway.API {
		return scaleway.NewRealClient(cfg.SecretKey, cfg.Region)
	}

	newImageBuilder = func(api scaleway.API, cfg *config.Config, logger *slog.Logger) ImageBuilder {
		return image.NewBuilder(api, nil, cfg, logger)
	}

	newLogger = func() *slog.Logger {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
)

// Build resolves the configuration and runs a full image build.
//
// Flag values take precedence over the config file, which takes precedence
// over built-in defaults. The run is bounded by the configured timeout so a
// wedged poll loop cannot hang the process forever.
func Build(ctx context.Context, opts BuildOptions) error {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	logger := newLogger()
	builder := newImageBuilder(newAPIClient(cfg), cfg, logger)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	logger.Info("building NixOS image",
		"region", cfg.Region,
		"instance_type", cfg.InstanceType,
		"bootstrap_disk_size", cfg.BootstrapDiskSize.HR(),
	)

	builtImage, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Printf("Image built successfully! ID: %s (%s)\n", builtImage.ID, builtImage.Name)
	return nil
}

// resolveConfig merges flags over the optional config file and validates the
// result.
func resolveConfig(opts BuildOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	if opts.SecretKey != "" {
		cfg.SecretKey = opts.SecretKey
	}
	if opts.Region != "" {
		cfg.Region = opts.Region
	}
	if opts.InstanceType != "" {
		cfg.InstanceType = opts.InstanceType
	}
	if opts.BootstrapDir != "" {
		cfg.BootstrapDir = opts.BootstrapDir
	}
	if opts.BootstrapDiskSize != "" {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(opts.BootstrapDiskSize)); err != nil {
			return nil, fmt.Errorf("invalid --bootstrap-disk-size %q: %w", opts.BootstrapDiskSize, err)
		}
		cfg.BootstrapDiskSize = size
	}
	if opts.CleanupOnFailure {
		cfg.CleanupOnFailure = true
	}
	if opts.Timeout != 0 {
		cfg.Timeout = opts.Timeout
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
