package main

import (
	"os"

	"github.com/mattn/go-isatty"
)

// A calculator that compiles its functions and expressions to native executables

const versionString = "calcc 0.1.0"

func main() {
	color := isatty.IsTerminal(os.Stdout.Fd())
	cmd := NewRootCommand(os.Stdout, os.Stderr, color)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
