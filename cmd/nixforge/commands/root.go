// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing and flag binding. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the nixforge CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nixforge",
		Short: "Build NixOS disk images on Scaleway",
	}

	cmd.AddCommand(Build())
	cmd.AddCommand(Version())

	return cmd
}
