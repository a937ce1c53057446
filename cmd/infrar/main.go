// Package main provides the infrar command-line tool.
package main

import (
	"os"

	"github.com/QodeSrl/infrar-engine/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
