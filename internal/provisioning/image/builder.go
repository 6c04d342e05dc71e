// Package image builds NixOS disk images on Scaleway. It selects a base
// image from the marketplace, provisions a temporary build server, runs the
// bootstrap payload over SSH, snapshots the data volume, and registers the
// snapshot as a bootable image.
package image

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nixforge/nixforge/internal/config"
	"github.com/nixforge/nixforge/internal/platform/scaleway"
	"github.com/nixforge/nixforge/internal/platform/ssh"
	"github.com/nixforge/nixforge/internal/util/keygen"
	"github.com/nixforge/nixforge/internal/util/poll"
)

// ErrBootstrapFailed means the bootstrap command exited with an unexpected
// status. The build server is left as-is for inspection unless cleanup on
// failure is configured.
var ErrBootstrapFailed = errors.New("bootstrap failed")

const (
	buildServerName = "nixos-image-builder"
	imageNamePrefix = "nixos-"

	// The bootstrap script installs NixOS onto the second volume; the
	// first is the scratch boot disk the base Ubuntu runs from.
	dataVolumeIndex = "1"
	dataVolumeName  = "nixos-volume"
	dataVolumeType  = "l_ssd"
	dataVolumeSize  = 20_000_000_000

	remotePayloadDir = "/tmp"
)

// Remote is the SSH surface the builder needs from the build server.
// *ssh.Client satisfies it.
type Remote interface {
	Connect(ctx context.Context) error
	UploadDir(ctx context.Context, localDir, remoteDir string) error
	Run(ctx context.Context, command string, logLine func(string)) (int, error)
	Close() error
}

// RemoteFactory creates a Remote for a host, authenticated with the run's
// ephemeral private key.
type RemoteFactory func(host string, privateKey []byte) (Remote, error)

// SSHRemote is the default RemoteFactory, backed by the SSH client.
func SSHRemote(host string, privateKey []byte) (Remote, error) {
	return ssh.NewClient(&ssh.Config{
		Host:       host,
		PrivateKey: privateKey,
	})
}

// Builder drives the end-to-end image build.
type Builder struct {
	api    scaleway.API
	remote RemoteFactory
	cfg    *config.Config
	logger *slog.Logger

	nowFn func() time.Time
}

// NewBuilder creates a Builder. remote may be nil to use the SSH default.
func NewBuilder(api scaleway.API, remote RemoteFactory, cfg *config.Config, logger *slog.Logger) *Builder {
	if remote == nil {
		remote = SSHRemote
	}
	return &Builder{
		api:    api,
		remote: remote,
		cfg:    cfg,
		logger: logger,
		nowFn:  time.Now,
	}
}

// Build runs the full pipeline and returns the registered image.
//
// The pipeline is strictly sequential: resolve identity and base image,
// create the build server, boot it, bootstrap it over SSH, wait for the
// script to power the machine off, snapshot the data volume, register the
// image, terminate the server. Every state transition is logged with the
// resource IDs needed for manual recovery.
func (b *Builder) Build(ctx context.Context) (result *scaleway.Image, err error) {
	buildID := uuid.NewString()
	logger := b.logger.With("build_id", buildID)

	// Resolve. Fails before any billable resource exists.
	organizationID, err := b.api.OrganizationID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organization: %w", err)
	}
	logger.Info("using organization", "organization_id", organizationID)

	catalog, err := b.api.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list marketplace images: %w", err)
	}
	baseImageID, err := SelectBaseImage(catalog, b.cfg.Region, b.cfg.InstanceType)
	if err != nil {
		return nil, err
	}
	logger.Info("using base image", "image_id", baseImageID)

	// Create. The key pair lives only in process memory for this run.
	keyPair, err := keygen.GenerateECDSAKeyPair()
	if err != nil {
		return nil, err
	}

	server, err := b.api.CreateServer(ctx, scaleway.ServerCreateOpts{
		Name:           buildServerName,
		Organization:   organizationID,
		Image:          baseImageID,
		CommercialType: b.cfg.InstanceType,
		BootType:       "local",
		Tags:           []string{keyPair.AuthorizedKeyTag(), "nixforge-build=" + buildID},
		Volumes: map[string]*scaleway.VolumeSpec{
			"0": {Size: b.cfg.BootstrapDiskSize.Bytes()},
			dataVolumeIndex: {
				Name:         dataVolumeName,
				Organization: organizationID,
				VolumeType:   dataVolumeType,
				Size:         dataVolumeSize,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create build server: %w", err)
	}
	// The refreshed server below is nil on a failed poll, so the cleanup path
	// must not read through it.
	serverID := server.ID
	logger.Info("provisioned build server", "server_id", serverID)

	defer func() {
		if err == nil {
			return
		}
		if !b.cfg.CleanupOnFailure {
			logger.Warn("leaving build server running for inspection",
				"server_id", serverID)
			return
		}
		logger.Info("terminating build server after failure", "server_id", serverID)
		if terr := b.api.ServerAction(context.Background(), serverID, scaleway.ActionTerminate); terr != nil {
			logger.Error("failed to terminate build server",
				"server_id", serverID, "error", terr)
		}
	}()

	// Boot.
	logger.Info("starting build server, this may take a bit")
	if err := b.api.ServerAction(ctx, serverID, scaleway.ActionPowerOn); err != nil {
		return nil, err
	}
	server, err = b.waitForServerState(ctx, serverID, scaleway.ServerStateRunning)
	if err != nil {
		return nil, err
	}
	logger.Info("build server running", "server_id", serverID)

	// Bootstrap.
	if err := b.bootstrap(ctx, logger, server, keyPair); err != nil {
		return nil, err
	}

	// Stop. The bootstrap script powers the machine off as its last step;
	// the orchestrator only waits for that to happen.
	logger.Info("waiting for build server to stop")
	server, err = b.waitForServerState(ctx, serverID, scaleway.ServerStateStoppedInPlace)
	if err != nil {
		return nil, err
	}

	// Snapshot.
	dataVolume, ok := server.Volumes[dataVolumeIndex]
	if !ok {
		return nil, fmt.Errorf("server %s has no volume at index %s", serverID, dataVolumeIndex)
	}
	imageName := imageNamePrefix + b.nowFn().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05")

	snapshot, err := b.api.CreateSnapshot(ctx, dataVolume.ID, imageName, organizationID)
	if err != nil {
		return nil, err
	}
	logger.Info("created snapshot", "snapshot_id", snapshot.ID)

	logger.Info("waiting for snapshot to become available")
	snapshot, err = b.waitForSnapshotAvailable(ctx, snapshot.ID)
	if err != nil {
		return nil, err
	}

	// Publish.
	builtImage, err := b.api.CreateImage(ctx, scaleway.ImageCreateOpts{
		Name:         imageName,
		RootVolume:   snapshot.ID,
		Arch:         server.Arch,
		Organization: organizationID,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("created image", "image_id", builtImage.ID, "image_name", builtImage.Name)

	// Cleanup.
	logger.Info("terminating build server", "server_id", serverID)
	if err := b.api.ServerAction(ctx, serverID, scaleway.ActionTerminate); err != nil {
		return nil, fmt.Errorf("image %s created but server %s not terminated: %w",
			builtImage.ID, serverID, err)
	}

	return builtImage, nil
}

// bootstrap connects to the build server, uploads the payload, and runs the
// bootstrap command to completion, streaming its output to the log.
func (b *Builder) bootstrap(ctx context.Context, logger *slog.Logger, server *scaleway.Server, keyPair *keygen.KeyPair) error {
	if server.PublicIP == nil || server.PublicIP.Address == "" {
		return fmt.Errorf("server %s has no public address", server.ID)
	}
	address := server.PublicIP.Address

	logger.Info("connecting to build server", "address", address)
	remote, err := b.remote(address, keyPair.PrivateKey)
	if err != nil {
		return err
	}
	defer func() { _ = remote.Close() }()

	if err := remote.Connect(ctx); err != nil {
		return err
	}

	logger.Info("uploading bootstrap payload",
		"local_dir", b.cfg.BootstrapDir, "remote_dir", remotePayloadDir)
	if err := remote.UploadDir(ctx, b.cfg.BootstrapDir, remotePayloadDir); err != nil {
		return err
	}

	logger.Info("executing bootstrap", "command", b.cfg.BootstrapCommand)
	status, err := remote.Run(ctx, b.cfg.BootstrapCommand, func(line string) {
		logger.Info(line)
	})
	if err != nil {
		return err
	}
	logger.Info("bootstrap exited", "status", status)

	if status != 0 && status != ssh.ExitStatusMissing {
		return fmt.Errorf("%w: exit status %d", ErrBootstrapFailed, status)
	}
	return nil
}

func (b *Builder) waitForServerState(ctx context.Context, serverID, state string) (*scaleway.Server, error) {
	return poll.Until(ctx,
		func(ctx context.Context) (*scaleway.Server, error) {
			return b.api.GetServer(ctx, serverID)
		},
		func(s *scaleway.Server) bool { return s.State == state },
		poll.WithInterval(b.cfg.PollInterval),
	)
}

func (b *Builder) waitForSnapshotAvailable(ctx context.Context, snapshotID string) (*scaleway.Snapshot, error) {
	return poll.Until(ctx,
		func(ctx context.Context) (*scaleway.Snapshot, error) {
			snapshot, err := b.api.GetSnapshot(ctx, snapshotID)
			if err != nil {
				return nil, err
			}
			if snapshot.State == scaleway.SnapshotStateError {
				return nil, fmt.Errorf("snapshot %s entered error state", snapshotID)
			}
			return snapshot, nil
		},
		func(s *scaleway.Snapshot) bool { return s.State == scaleway.SnapshotStateAvailable },
		poll.WithInterval(b.cfg.PollInterval),
	)
}
