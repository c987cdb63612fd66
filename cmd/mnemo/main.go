package main

import (
	"os"

	"github.com/mnemo-oss/mnemo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
