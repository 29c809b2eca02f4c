// Package main is the entry point for the keyshelf binary.
package main

import (
	"os"

	"keyshelf/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
