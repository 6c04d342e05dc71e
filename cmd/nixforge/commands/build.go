package commands

import (
	"github.com/spf13/cobra"

	"github.com/nixforge/nixforge/cmd/nixforge/handlers"
)

// Build returns the command that runs a full image build.
//
// Flags:
//
//	--config: optional YAML config file
//	--secret-key: Scaleway secret key (default: SCW_SECRET_KEY env var)
//	--region: target region/zone (default: "fr-par-1")
//	--instance-type: commercial type of the build server (default: "DEV1-M")
//	--bootstrap-disk-size: scratch boot disk size, e.g. "20GB"
//	--bootstrap-dir: local directory with the bootstrap payload
//	--cleanup-on-failure: terminate the build server when the run fails
//	--timeout: overall deadline for the run (default: 1h)
func Build() *cobra.Command {
	var opts handlers.BuildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a new NixOS image",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Build(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&opts.SecretKey, "secret-key", "", "Scaleway secret key (default: $SCW_SECRET_KEY)")
	cmd.Flags().StringVar(&opts.Region, "region", "", "Target region, e.g. fr-par-1")
	cmd.Flags().StringVar(&opts.InstanceType, "instance-type", "", "Commercial type of the build server, e.g. DEV1-M")
	cmd.Flags().StringVar(&opts.BootstrapDiskSize, "bootstrap-disk-size", "", "Scratch boot disk size, e.g. 20GB")
	cmd.Flags().StringVar(&opts.BootstrapDir, "bootstrap-dir", "", "Directory with the bootstrap payload")
	cmd.Flags().BoolVar(&opts.CleanupOnFailure, "cleanup-on-failure", false, "Terminate the build server when the run fails")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Overall deadline for the run (default 1h)")

	return cmd
}
