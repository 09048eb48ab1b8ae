package main

import (
	"os"

	"tickvault/cmd/tickvault/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
