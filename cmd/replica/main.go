package main

import (
	"os"

	"github.com/zoobzio/replica/cmd/replica/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		cmd.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
