package main

import (
	"os"

	"github.com/msto63/chainfeed/cmd/feedctl/cmd"
	"github.com/msto63/chainfeed/pkg/core/logging"
)

func main() {
	err := cmd.Execute()
	logging.CloseFiles()
	if err != nil {
		os.Exit(1)
	}
}
