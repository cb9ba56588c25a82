package main

import (
	"errors"
	"fmt"
	"os"

	_ "devhost-keeper/cmd"
	"devhost-keeper/cmd/root"
)

func main() {
	err := root.RootCmd.Execute()
	if err == nil {
		os.Exit(0)
	}
	var exitErr *root.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.Err)
		}
		os.Exit(exitErr.Code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
