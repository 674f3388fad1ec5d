package unifi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devicePayload = `{
  "meta": {"rc": "ok"},
  "data": [
    {"mac": "aa:bb:cc:dd:ee:01", "name": "office-switch", "state": 1}
  ]
}`

const clientPayload = `{
  "meta": {"rc": "ok"},
  "data": [
    {"mac": "11:22:33:44:55:01", "hostname": "laptop"}
  ]
}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		Name:     "test",
		Host:     srv.URL,
		Site:     "default",
		Username: "unipoll",
		Password: "secret",
	})
	require.NoError(t, err)
	return c
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{Name: "test", Host: "https://192.168.1.1:8443"})
	require.NoError(t, err)
	assert.Equal(t, "default", c.config.Site)
	assert.NotZero(t, c.config.Timeout)
	assert.Equal(t, "test", c.Name())
}

func TestLogin_Success(t *testing.T) {
	var gotBody map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/login", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		json.Unmarshal(b, &gotBody)
		http.SetCookie(w, &http.Cookie{Name: "unifises", Value: "session-token"})
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, c.Login(context.Background()))
	assert.Equal(t, "unipoll", gotBody["username"])
	assert.Equal(t, "secret", gotBody["password"])
}

func TestLogin_BadCredentials(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := c.Login(context.Background())
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.True(t, authErr.AuthFailure())
}

func TestLogin_ServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	err := c.Login(context.Background())
	require.Error(t, err)

	var transient *TransientError
	require.ErrorAs(t, err, &transient)
	assert.True(t, transient.IsRetryable())
}

func TestLogin_UnreachableIsTransient(t *testing.T) {
	c, err := New(Config{Name: "test", Host: "http://127.0.0.1:1"})
	require.NoError(t, err)

	err = c.Login(context.Background())
	require.Error(t, err)

	var transient *TransientError
	assert.ErrorAs(t, err, &transient)
}

func TestDevices(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/s/default/stat/device", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, devicePayload)
	}))

	data, err := c.Devices(context.Background())
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "aa:bb:cc:dd:ee:01", entries[0]["mac"])
}

func TestClients(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/s/default/stat/sta", r.URL.Path)
		io.WriteString(w, clientPayload)
	}))

	data, err := c.Clients(context.Background())
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "laptop", entries[0]["hostname"])
}

func TestDevices_SessionExpired(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.Devices(context.Background())
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "session expired")
}

func TestDevices_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream down")
	}))

	_, err := c.Devices(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.True(t, apiErr.IsRetryable())
	assert.Contains(t, apiErr.Body, "upstream down")
}

func TestDevices_ClientErrorNotRetryable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Devices(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.IsRetryable())
}

func TestDevices_TooManyRequestsRetryable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.Devices(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRetryable())
}

func TestDevices_MalformedEnvelope(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json at all")
	}))

	_, err := c.Devices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing response")
}

func TestDevices_CancelledContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, devicePayload)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Devices(ctx)
	require.Error(t, err)

	// Cancellation surfaces through the transport as a transient error.
	var transient *TransientError
	assert.ErrorAs(t, err, &transient)
}

func TestLogout(t *testing.T) {
	var called bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = r.URL.Path == "/api/logout"
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, c.Logout(context.Background()))
	assert.True(t, called)
}

func TestSessionCookiePersists(t *testing.T) {
	var gotCookie string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "unifises", Value: "session-token"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/s/default/stat/device", func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("unifises"); err == nil {
			gotCookie = cookie.Value
		}
		io.WriteString(w, devicePayload)
	})

	c := newTestClient(t, mux)
	require.NoError(t, c.Login(context.Background()))
	_, err := c.Devices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-token", gotCookie)
}
