package main

import (
	"os"

	"github.com/oskarlind/riskcube/cmd/riskcube/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
