package main

import (
	"fmt"
	"os"

	"github.com/crate/testdrive/cmd/testdrive/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
