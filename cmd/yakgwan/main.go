// Package main provides the entry point for the yakgwan CLI.
package main

import (
	"os"

	"github.com/joonhokim/yakgwan/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
