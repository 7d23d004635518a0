// Copyright 2025 Certen Protocol

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/model"
)

func newCreateCmd(serverURL *string, setExit func(int)) *cobra.Command {
	var (
		statement   string
		framework   string
		controlID   string
		policy      string
		evidence    []string
		callbackURL string
		idemKey     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new attestation request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if statement == "" || framework == "" || policy == "" || len(evidence) == 0 {
				setExit(exitUsage)
				return fmt.Errorf("--statement, --framework, --policy, and at least one --evidence are required")
			}

			items, err := parseEvidence(evidence)
			if err != nil {
				setExit(exitUsage)
				return err
			}

			req := model.CreateRequest{
				Evidence: items,
				Policy:   policy,
				Control: model.ControlDescriptor{
					Framework: framework,
					ControlID: controlID,
					Statement: statement,
				},
				CallbackURL: callbackURL,
			}

			client := newAPIClient(*serverURL)
			httpReq := httpRequestWithIdempotency{body: req, idempotencyKey: idemKey}

			var out map[string]interface{}
			if err := client.doCreate("/api/v1/attestations", httpReq, &out); err != nil {
				classifyAndSetExit(err, setExit)
				return err
			}

			return printJSON(out)
		},
	}

	cmd.Flags().StringVar(&statement, "statement", "", "control statement text")
	cmd.Flags().StringVar(&framework, "framework", "", "compliance framework name")
	cmd.Flags().StringVar(&controlID, "control-id", "", "control identifier")
	cmd.Flags().StringVar(&policy, "policy", "", "governing policy name")
	cmd.Flags().StringArrayVar(&evidence, "evidence", nil, "evidence item as uri:hash:type, may be repeated")
	cmd.Flags().StringVar(&callbackURL, "callback-url", "", "webhook URL notified on state change")
	cmd.Flags().StringVar(&idemKey, "idempotency-key", "", "idempotency key for safe retries")

	return cmd
}

func parseEvidence(raw []string) ([]model.EvidenceInput, error) {
	items := make([]model.EvidenceInput, 0, len(raw))
	for _, r := range raw {
		// Split on the last two colons so URIs with a scheme keep their colons.
		typeSep := strings.LastIndex(r, ":")
		hashSep := -1
		if typeSep > 0 {
			hashSep = strings.LastIndex(r[:typeSep], ":")
		}
		if hashSep < 0 {
			return nil, fmt.Errorf("invalid --evidence %q, expected uri:hash:type", r)
		}
		items = append(items, model.EvidenceInput{URI: r[:hashSep], Hash: r[hashSep+1 : typeSep], Type: r[typeSep+1:]})
	}
	return items, nil
}

type httpRequestWithIdempotency struct {
	body           interface{}
	idempotencyKey string
}

func (c *apiClient) doCreate(path string, req httpRequestWithIdempotency, out interface{}) error {
	b, err := json.Marshal(req.body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := newJSONRequest("POST", c.baseURL+path, b)
	if err != nil {
		return err
	}
	if req.idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.idempotencyKey)
	}
	return c.doRequest(httpReq, out)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
