package main

import (
	"os"

	"github.com/nestquant/nestquant/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
