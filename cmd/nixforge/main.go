// Package main is the entry point for the nixforge CLI.
//
// nixforge builds bootable NixOS disk images on Scaleway: it provisions a
// temporary Ubuntu server, installs NixOS onto a secondary volume via a
// bootstrap script, snapshots that volume, registers the snapshot as an
// image, and tears the server down.
//
// For detailed usage information, run:
//
//	nixforge --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nixforge/nixforge/cmd/nixforge/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
