// Package main provides the skillgraph CLI entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/skillgraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
