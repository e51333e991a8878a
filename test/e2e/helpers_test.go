//go:build e2e

// Shared request and assertion helpers for the e2e suite.

package e2e_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/turtacn/ChemStor-Intelligence/pkg/client"
)

// doGet sends a GET request to the server under test.
func doGet(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, env.baseURL+path, nil)
	if err != nil {
		t.Fatalf("create GET request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := env.httpClient.Do(req)
	if err != nil {
		t.Fatalf("execute GET request: %v", err)
	}
	t.Logf("GET %s -> %d", path, resp.StatusCode)
	return resp
}

// doPost sends a POST request with a JSON body.
func doPost(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(http.MethodPost, env.baseURL+path, bodyReader)
	if err != nil {
		t.Fatalf("create POST request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := env.httpClient.Do(req)
	if err != nil {
		t.Fatalf("execute POST request: %v", err)
	}
	t.Logf("POST %s -> %d", path, resp.StatusCode)
	return resp
}

// assertStatus asserts the HTTP status code, dumping the body on mismatch.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d; body: %s", expected, resp.StatusCode, string(body))
	}
}

// assertJSON reads and unmarshals the response body into target.
func assertJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("unmarshal response: %v; body: %s", err, string(body))
	}
}

// skipIfUnavailable skips the test when the server reports the surface it
// needs as unavailable (optional backend not wired in the deployment under
// test).  Other errors fail the test.
func skipIfUnavailable(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		return
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && (apiErr.IsServerError() || apiErr.StatusCode == http.StatusNotImplemented) {
		t.Skipf("surface unavailable on server under test: %v", apiErr)
	}
	t.Fatalf("unexpected error: %v", err)
}

// randomSuffix uniquifies test data across suite runs.
func randomSuffix() string {
	return fmt.Sprintf("e2e-%d", time.Now().UnixNano())
}

// waitForCondition polls until condition returns true, failing at timeout.
func waitForCondition(t *testing.T, description string, timeout, interval time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition %q not met within %v", description, timeout)
		}
		<-ticker.C
	}
}

//Personal.AI order the ending
