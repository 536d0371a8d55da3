package main

import (
	"os"

	"github.com/kyleking/rockset-org-metadata/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
