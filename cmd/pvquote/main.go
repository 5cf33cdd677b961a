// Package main is the entry point for the pvquote CLI.
package main

import (
	"os"

	"pvquote/cmd/pvquote/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
