// Copyright 2025 Certen Protocol

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd(serverURL *string, setExit func(int)) *cobra.Command {
	return &cobra.Command{
		Use:   "get <attestation-id>",
		Short: "Fetch the current state of an attestation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(*serverURL)
			var out map[string]interface{}
			if err := client.do("GET", "/api/v1/attestations/"+args[0], nil, &out); err != nil {
				classifyAndSetExit(err, setExit)
				return err
			}
			return printJSON(out)
		},
	}
}

func newCancelCmd(serverURL *string, setExit func(int)) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <attestation-id>",
		Short: "Request cooperative cancellation of an in-flight attestation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(*serverURL)
			if err := client.do("POST", "/api/v1/attestations/"+args[0]+"/cancel", nil, nil); err != nil {
				classifyAndSetExit(err, setExit)
				return err
			}
			fmt.Println("cancellation requested")
			return nil
		},
	}
}

func newRevokeCmd(serverURL *string, setExit func(int)) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <attestation-id>",
		Short: "Revoke a valid attestation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(*serverURL)
			if err := client.do("POST", "/api/v1/attestations/"+args[0]+"/revoke", nil, nil); err != nil {
				classifyAndSetExit(err, setExit)
				return err
			}
			fmt.Println("attestation revoked")
			return nil
		},
	}
}
