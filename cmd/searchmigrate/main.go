package main

import (
	"fmt"
	"os"

	// Import init package first to set up logging defaults before config loads
	_ "github.com/beam-cloud/searchmigrate/internal/init"

	"github.com/beam-cloud/searchmigrate/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
