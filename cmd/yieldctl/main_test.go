package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]interface{}
}

func fakeAPI(t *testing.T, status int, reply string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var seen []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured := capturedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Auth: r.Header.Get("Authorization")}
		if r.ContentLength > 0 {
			_ = json.NewDecoder(r.Body).Decode(&captured.Body)
		}
		seen = append(seen, captured)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestBondCreateSendsBody(t *testing.T) {
	srv, seen := fakeAPI(t, http.StatusCreated, `{"id":1,"status":"active"}`)
	var stdout, stderr bytes.Buffer
	code := run([]string{"--api", srv.URL, "--token=abc", "bond", "create", "--amount", "500", "--term", "40"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	require.Len(t, *seen, 1)
	got := (*seen)[0]
	require.Equal(t, "POST", got.Method)
	require.Equal(t, "/v1/bonds", got.Path)
	require.Equal(t, "Bearer abc", got.Auth)
	require.Equal(t, "500", got.Body["amount"])
	require.Equal(t, float64(40), got.Body["term"])
	require.Contains(t, stdout.String(), `"status": "active"`)
}

func TestRoutesForSubcommands(t *testing.T) {
	cases := []struct {
		args   []string
		method string
		path   string
		query  string
	}{
		{[]string{"bond", "show", "7"}, "GET", "/v1/bonds/7", ""},
		{[]string{"bond", "redeem", "7"}, "POST", "/v1/bonds/7/redeem", ""},
		{[]string{"bond", "yield", "7", "--amount", "3"}, "POST", "/v1/bonds/7/yield", ""},
		{[]string{"bond", "transfer", "7", "--claim", "yield", "--to", "ys1abc"}, "POST", "/v1/bonds/7/transfer", ""},
		{[]string{"vault", "initialize", "--maturity", "900"}, "POST", "/v1/vault/initialize", ""},
		{[]string{"vault", "sync", "--amount", "10"}, "POST", "/v1/vault/sync", ""},
		{[]string{"vault", "holder", "ys1abc"}, "GET", "/v1/vault/holders/ys1abc", ""},
		{[]string{"events", "--type", "vault.synced", "--limit", "5"}, "GET", "/v1/events", "limit=5&type=vault.synced"},
		{[]string{"pause", "vault"}, "POST", "/v1/admin/pause", ""},
		{[]string{"relayer"}, "GET", "/v1/relayer/status", ""},
	}
	for _, tc := range cases {
		t.Run(strings.Join(tc.args, " "), func(t *testing.T) {
			srv, seen := fakeAPI(t, http.StatusOK, `{}`)
			var stdout, stderr bytes.Buffer
			code := run(append([]string{"--api", srv.URL}, tc.args...), &stdout, &stderr)
			require.Equal(t, 0, code, stderr.String())
			require.Len(t, *seen, 1)
			require.Equal(t, tc.method, (*seen)[0].Method)
			require.Equal(t, tc.path, (*seen)[0].Path)
			require.Equal(t, tc.query, (*seen)[0].Query)
		})
	}
}

func TestAPIErrorsAreReported(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusConflict, `{"error":"not_matured","message":"bond not matured"}`)
	var stdout, stderr bytes.Buffer
	code := run([]string{"--api", srv.URL, "bond", "redeem", "1"}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "not_matured")
	require.Contains(t, stderr.String(), "HTTP 409")
	require.Empty(t, stdout.String())
}

func TestArgumentValidation(t *testing.T) {
	srv, seen := fakeAPI(t, http.StatusOK, `{}`)
	for _, args := range [][]string{
		{"bond", "create", "--amount", "5"},
		{"bond", "show", "zero"},
		{"vault", "transfer", "--claim", "yield"},
		{"nonsense"},
		{},
	} {
		var stdout, stderr bytes.Buffer
		require.Equal(t, 1, run(append([]string{"--api", srv.URL}, args...), &stdout, &stderr), args)
	}
	require.Empty(t, *seen)

	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run([]string{"--api"}, &stdout, &stderr))
}
