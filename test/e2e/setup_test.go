//go:build e2e

// End-to-end tests against a running ChemStor-Intelligence API server.  The
// suite is compiled behind the e2e build tag; point CHEMSTOR_E2E_BASE_URL at
// the server under test (default http://localhost:8080).  Tests that need an
// optional backend (search, similarity, worker) skip themselves when the
// server reports the surface unavailable.
package e2e_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/turtacn/ChemStor-Intelligence/pkg/client"
)

const (
	// EnvBaseURL overrides the server under test.
	EnvBaseURL = "CHEMSTOR_E2E_BASE_URL"

	// DefaultBaseURL is the local development server.
	DefaultBaseURL = "http://localhost:8080"

	// healthTimeout bounds the startup wait for the server under test.
	healthTimeout = 30 * time.Second
)

// testEnv holds the shared handles for the e2e suite.
type testEnv struct {
	baseURL    string
	httpClient *http.Client
	sdk        *client.Client
}

var env *testEnv

func TestMain(m *testing.M) {
	var err error
	env, err = setupTestEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "e2e setup failed: %v\n", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func setupTestEnv() (*testEnv, error) {
	baseURL := os.Getenv(EnvBaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if err := waitForHealthy(baseURL, healthTimeout); err != nil {
		return nil, fmt.Errorf("server at %s not healthy: %w", baseURL, err)
	}

	sdk, err := client.NewClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("create sdk client: %w", err)
	}

	return &testEnv{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sdk:        sdk,
	}, nil
}

// waitForHealthy polls the liveness probe until the server answers.
func waitForHealthy(baseURL string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	hc := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("timeout: %w", lastErr)
			}
			return fmt.Errorf("timeout")
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
			if err != nil {
				lastErr = err
				continue
			}
			resp, err := hc.Do(req)
			if err != nil {
				lastErr = err
				continue
			}
			var body struct {
				Status string `json:"status"`
			}
			err = json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			if err == nil && resp.StatusCode == http.StatusOK && body.Status == "alive" {
				return nil
			}
			lastErr = fmt.Errorf("unhealthy: status=%d", resp.StatusCode)
		}
	}
}

//Personal.AI order the ending
