package main

import (
	"os"

	"github.com/pojntfx/atorrent/cmd/atorrent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
