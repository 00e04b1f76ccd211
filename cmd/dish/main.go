// Command dish simulates discrete boolean networks.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/dish/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Commands that print their own error report return an ExitError;
	// anything else (flag parsing, cobra argument checks) is printed here.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
