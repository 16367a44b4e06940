// Package main is the entry point for the graphable CLI binary.
package main

import (
	"os"

	cli "graphable/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
