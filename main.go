// Package main provides the entry point for pagediff.
package main

import (
	"fmt"
	"os"

	"pagediff/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
