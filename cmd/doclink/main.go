package main

import (
	"os"

	"github.com/benjaminschreck/doclink/cmd/doclink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
