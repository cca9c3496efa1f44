package cloud

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testToken = "65e91a7a3e3bfd1e1b8d2a4f7c6b5a4938271605"

// newTestClient returns a client pointed at a test server, with retry
// delays collapsed so retry tests run instantly.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClientWithURL(server.URL, StaticToken(testToken))
	client.RetryDelay = time.Millisecond
	client.MaxRetryDelay = time.Millisecond
	return client
}

func TestNewClient(t *testing.T) {
	client := NewClient(StaticToken(testToken))

	if client.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", client.BaseURL, DefaultBaseURL)
	}
	if client.HTTPClient == nil {
		t.Error("HTTPClient should not be nil")
	}
	if client.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", client.MaxRetries, DefaultMaxRetries)
	}
	if !client.UseExponentialBackoff {
		t.Error("UseExponentialBackoff should default to true")
	}
}

func TestNewClientWithURLTrimsTrailingSlash(t *testing.T) {
	client := NewClientWithURL("https://staging.example.com/", StaticToken(testToken))
	if client.BaseURL != "https://staging.example.com" {
		t.Errorf("BaseURL = %s, want trailing slash trimmed", client.BaseURL)
	}
}

func TestSetRetry(t *testing.T) {
	client := NewClient(StaticToken(testToken))
	client.SetRetry(5, 2*time.Second)

	if client.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", client.MaxRetries)
	}
	if client.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", client.RetryDelay)
	}
}

func TestSetTimeout(t *testing.T) {
	client := NewClient(StaticToken(testToken))
	client.SetTimeout(5 * time.Second)

	if client.HTTPClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.HTTPClient.Timeout)
	}
}

func TestRequestsCarryBearerToken(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	})

	if _, err := client.ListDevices(); err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if want := "Bearer " + testToken; gotAuth != want {
		t.Errorf("Authorization = %q, want %q", gotAuth, want)
	}
}

func TestTokenFailurePropagatesWithoutRequest(t *testing.T) {
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})
	client.Tokens = StaticToken("")

	_, err := client.ListDevices()
	if !IsAuthError(err) {
		t.Errorf("error = %v, want auth error", err)
	}
	if requests != 0 {
		t.Errorf("server saw %d requests, want 0", requests)
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	if _, err := client.ListDevices(); err != nil {
		t.Fatalf("ListDevices() error = %v after retries", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestGetDoesNotRetryAuthFailures(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ListDevices()
	if !IsAuthError(err) {
		t.Fatalf("error = %v, want auth error", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (auth errors are not retryable)", attempts)
	}
}

func TestGetExhaustsRetryBudget(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client.MaxRetries = 2

	_, err := client.ListDevices()
	if !IsHTTPError(err) {
		t.Fatalf("error = %v, want HTTP error", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", attempts)
	}
}

func TestNotFoundMapsToHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "Permission Denied", "info": "I didn't recognize that device name or ID"}`))
	})

	_, err := client.GetDevice("no-such-device")
	if !IsHTTPError(err) {
		t.Fatalf("error = %v, want HTTP error", err)
	}
	var cloudErr *CloudError
	if !errors.As(err, &cloudErr) {
		t.Fatalf("error %v is not a *CloudError", err)
	}
	if cloudErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", cloudErr.StatusCode)
	}
}
