// Copyright 2025 Certen Protocol
//
// attestctl
// Command-line client for the attestation pipeline API: create, inspect,
// and verify attestations against a running server.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes. 0 success; 1 usage; 2 validation failure; 3 ledger
// failure; 4 internal error.
const (
	exitSuccess          = 0
	exitUsage            = 1
	exitValidationFailed = 2
	exitLedgerFailure    = 3
	exitInternalError    = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	var serverURL string

	root := &cobra.Command{
		Use:           "attestctl",
		Short:         "Client for the zero-knowledge attestation pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the attestation API")

	exitCode := exitSuccess
	setExit := func(code int) { exitCode = code }

	root.AddCommand(newCreateCmd(&serverURL, setExit))
	root.AddCommand(newGetCmd(&serverURL, setExit))
	root.AddCommand(newVerifyCmd(&serverURL, setExit))
	root.AddCommand(newCancelCmd(&serverURL, setExit))
	root.AddCommand(newRevokeCmd(&serverURL, setExit))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if exitCode == exitSuccess {
			exitCode = exitUsage
		}
	}
	return exitCode
}
