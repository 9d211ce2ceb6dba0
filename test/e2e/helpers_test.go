//go:build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// EnvServerURL names the base URL of the running server under test.
const EnvServerURL = "E2E_SERVER_URL"

// Default configuration values.
const (
	DefaultServerURL = "http://localhost:3000"
	DefaultTimeout   = 15 * time.Second
)

// getEnvOrDefault returns the value of the environment variable
// identified by key, or defaultVal if the variable is not set.
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// e2eServerURL returns the base URL of the server under test.
func e2eServerURL() string {
	return getEnvOrDefault(EnvServerURL, DefaultServerURL)
}

// skipIfServerUnavailable checks whether the server is reachable
// and skips the test if it is not.
func skipIfServerUnavailable(t *testing.T) {
	t.Helper()

	base := e2eServerURL()
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(base + "/")
	if err != nil {
		t.Skipf("Server unavailable at %s: %v", base, err)
	}
	resp.Body.Close()
}

// newHTTPClient returns an *http.Client with a sensible timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// itemResponse represents an item returned by the API.
type itemResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// errorResponse represents an error body returned by the API.
type errorResponse struct {
	Error string `json:"error"`
}

// doRequest performs an HTTP request and returns status code, headers
// and body.
func doRequest(
	t *testing.T,
	client *http.Client,
	method, url string,
	body io.Reader,
) (int, http.Header, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	return resp.StatusCode, resp.Header, respBody
}

// createItem creates an item and returns the stored representation.
// It fails the test on error.
func createItem(t *testing.T, client *http.Client, base, name string, price float64) itemResponse {
	t.Helper()

	payload, _ := json.Marshal(map[string]any{"name": name, "price": price})
	status, _, body := doRequest(t, client, http.MethodPost, base+"/items", bytes.NewReader(payload))
	if status != http.StatusCreated {
		t.Fatalf("createItem: expected 201, got %d. Body: %s", status, body)
	}

	var created itemResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("createItem: failed to parse item: %v", err)
	}

	return created
}

// deleteItem removes an item during cleanup. Missing items are tolerated.
func deleteItem(t *testing.T, client *http.Client, base string, id int64) {
	t.Helper()

	url := fmt.Sprintf("%s/items/%d", base, id)
	status, _, body := doRequest(t, client, http.MethodDelete, url, nil)
	if status != http.StatusNoContent && status != http.StatusNotFound {
		t.Logf("deleteItem cleanup: expected 204, got %d. Body: %s", status, body)
	}
}

// decodeError parses an error body and fails the test if it is not one.
func decodeError(t *testing.T, body []byte) string {
	t.Helper()

	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("failed to parse error body %q: %v", body, err)
	}
	return resp.Error
}
