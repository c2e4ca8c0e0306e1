// Package main provides the remote-cli tool for talking to media servers.
package main

import (
	"os"

	"github.com/sirosfoundation/go-media-remote/cmd/remote-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
