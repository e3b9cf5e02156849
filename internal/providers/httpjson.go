package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"courier/pkg/platform/circuit"
)

// maxErrorBody bounds how much of a failed response is kept for the error message.
const maxErrorBody = 512

// DoJSON executes req and decodes a 2xx JSON body into out. Every failure is a
// *ProviderError. When breaker is non-nil, an open circuit short-circuits the
// call and the outcome is recorded.
func DoJSON(client *http.Client, breaker *circuit.Breaker, providerID string, req *http.Request, out any) error {
	if breaker != nil && !breaker.Allow() {
		return NewProviderError(ErrorCircuitOpen, providerID, "circuit open", nil)
	}
	err := doJSON(client, providerID, req, out)
	if breaker != nil {
		if CountsAgainstCircuit(err) {
			breaker.RecordFailure()
		} else {
			breaker.RecordSuccess()
		}
	}
	return err
}

func doJSON(client *http.Client, providerID string, req *http.Request, out any) error {
	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		category := ErrorProviderOutage
		if errors.Is(err, context.DeadlineExceeded) {
			category = ErrorTimeout
		}
		return NewProviderError(category, providerID,
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return NewProviderError(CategoryFromStatus(resp.StatusCode), providerID,
			fmt.Sprintf("%s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, body), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewProviderError(ErrorBadData, providerID, "decode response", err)
	}
	return nil
}
