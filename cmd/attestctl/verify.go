// Copyright 2025 Certen Protocol

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd(serverURL *string, setExit func(int)) *cobra.Command {
	var checks []string

	cmd := &cobra.Command{
		Use:   "verify <attestation-id>",
		Short: "Run the verification checklist and print the signed receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(*serverURL)

			var body interface{}
			if len(checks) > 0 {
				body = map[string][]string{"checks": checks}
			}

			var out map[string]interface{}
			err := client.doAllowingStatus("POST", "/api/v1/attestations/"+args[0]+"/verify", body, &out, 200, 422)
			if err != nil {
				classifyAndSetExit(err, setExit)
				return err
			}

			if err := printJSON(out); err != nil {
				return err
			}

			result, ok := out["result"].(map[string]interface{})
			if ok {
				if overall, ok := result["overall_valid"].(bool); ok && !overall {
					setExit(exitValidationFailed)
					return fmt.Errorf("attestation did not pass verification")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&checks, "checks", nil, "restrict verification to these checks (default: all six)")
	return cmd
}
