// Package main is the entry point for the vpsgate CLI.
//
// vpsgate turns a fresh VPS into the public entry point of a Kubernetes
// cluster that has no public address of its own. It installs either an
// frp server under systemd or WireGuard with Caddy under Docker Compose,
// and it can be re-run safely to update an existing installation.
//
// For detailed usage information, run:
//
//	vpsgate --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/vpsgate/cmd/vpsgate/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
