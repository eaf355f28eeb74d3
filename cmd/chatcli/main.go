// Package main provides the entry point for the chatcli client.
package main

import (
	"fmt"
	"os"

	"github.com/set-night/mindchat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
