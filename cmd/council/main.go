// Package main is the entry point for the council CLI.
//
// Usage:
//
//	council [flags] <command> [args]
//
// Commands:
//
//	serve      - Run the council gateway
//	ask        - Put a question to the sages
//	sages      - List the sage catalogue
//	credits    - Show or top up the credit balance
//	history    - Show past consultations from the local cache
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/sagecouncil/council/cmd/council/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
