// Copyright 2025 Certen Protocol

package main

import "errors"

// classifyAndSetExit maps a failed API call to the CLI's exit-code
// contract. Anything that isn't a recognized API error is treated as
// internal.
func classifyAndSetExit(err error, setExit func(int)) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 400 || apiErr.StatusCode == 422:
			setExit(exitValidationFailed)
		case apiErr.StatusCode == 502 || apiErr.StatusCode == 503:
			setExit(exitLedgerFailure)
		case apiErr.StatusCode == 404 || apiErr.StatusCode == 409:
			setExit(exitValidationFailed)
		default:
			setExit(exitInternalError)
		}
		return
	}
	setExit(exitInternalError)
}
