package main

import (
	"os"

	"github.com/Ananth-NQI/personbot/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
