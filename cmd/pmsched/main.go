package main

import (
	"os"

	"github.com/plantops/pmsched/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
