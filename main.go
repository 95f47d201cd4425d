package main

import (
	"os"

	"github.com/landingkit/lander/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
