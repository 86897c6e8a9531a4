package main

import (
	"os"

	"github.com/amark-23/slp-labs-NLP/cmd"
)

func main() {
	if err := cmd.NewCLI().Execute(); err != nil {
		os.Exit(1)
	}
}
