package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-media-remote/pkg/config"
)

func testAdapter() *Adapter {
	return New(config.HTTPConfig{
		Timeout:   5 * time.Second,
		UserAgent: "test-agent/1.0",
		Headers:   map[string]string{"X-Client": "test"},
	}, zap.NewNop())
}

func TestAdapter_InstanceIsStable(t *testing.T) {
	a := testAdapter()
	client := a.Instance()

	client.SetBaseURL("https://a.test")
	a.ResetDefaults()

	assert.Same(t, client, a.Instance())
}

func TestAdapter_ResetDefaults(t *testing.T) {
	a := testAdapter()
	client := a.Instance()

	client.SetBaseURL("https://a.test")
	client.SetHeader("Authorization", "MediaBrowser Token=\"x\"")
	client.SetHeader("X-Client", "changed")

	a.ResetDefaults()

	d := client.Defaults()
	assert.Empty(t, d.BaseURL)
	assert.Empty(t, d.Header.Get("Authorization"))
	assert.Equal(t, "test", d.Header.Get("X-Client"))
	assert.Equal(t, "test-agent/1.0", d.Header.Get("User-Agent"))
	assert.Equal(t, 5*time.Second, d.Timeout)
	assert.Equal(t, a.InitialDefaults(), d)
}

func TestClient_DefaultsAreCopies(t *testing.T) {
	client := testAdapter().Instance()

	d := client.Defaults()
	d.Header.Set("X-Client", "mutated")
	d.BaseURL = "https://mutated.test"

	assert.Equal(t, "test", client.Defaults().Header.Get("X-Client"))
	assert.Empty(t, client.BaseURL())
}

func TestClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Users/AuthenticateByName", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("v"))
		assert.Equal(t, "test", r.Header.Get("X-Client"))
		assert.Equal(t, "per-request", r.Header.Get("X-Extra"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["Username"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"AccessToken": "tok"})
	}))
	defer server.Close()

	client := testAdapter().Instance()
	client.SetBaseURL(server.URL + "/")

	var out struct {
		AccessToken string `json:"AccessToken"`
	}
	err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/Users/AuthenticateByName",
		Query:  url.Values{"v": {"1"}},
		Header: http.Header{"X-Extra": {"per-request"}},
		Body:   map[string]string{"Username": "alice"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "tok", out.AccessToken)
}

func TestClient_Do_NoBaseURL(t *testing.T) {
	client := testAdapter().Instance()
	err := client.Do(context.Background(), Request{Path: "/System/Info/Public"}, nil)
	assert.ErrorIs(t, err, ErrNoBaseURL)
}

func TestClient_Do_AbsolutePath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := testAdapter().Instance()
	require.NoError(t, client.Do(context.Background(), Request{Path: server.URL + "/ping"}, nil))
}

func TestClient_Do_StatusError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{"error field", `{"error":"bad token"}`, http.StatusUnauthorized, "bad token"},
		{"problem detail", `{"title":"Forbidden","detail":"not allowed"}`, http.StatusForbidden, "not allowed"},
		{"plain text", "boom\n", http.StatusInternalServerError, "boom"},
		{"empty body", "", http.StatusNotFound, "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := testAdapter().Instance()
			client.SetBaseURL(server.URL)

			err := client.Do(context.Background(), Request{Path: "/x"}, nil)
			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.code, statusErr.StatusCode)
			assert.Equal(t, tt.message, statusErr.Message)
		})
	}
}

func TestClient_Do_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not valid json"))
	}))
	defer server.Close()

	client := testAdapter().Instance()
	client.SetBaseURL(server.URL)

	var out map[string]any
	err := client.Do(context.Background(), Request{Path: "/x"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}
