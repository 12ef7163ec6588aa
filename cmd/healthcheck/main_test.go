package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialAddr(t *testing.T) {
	tests := []struct {
		listen string
		want   string
	}{
		{"", defaultAddr},
		{"garbage", defaultAddr},
		{"0.0.0.0:9000", "127.0.0.1:9000"},
		{":9000", "127.0.0.1:9000"},
		{"[::]:9000", "[::1]:9000"},
		{"10.0.0.5:8000", "10.0.0.5:8000"},
		{"[::1]:8000", "[::1]:8000"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, dialAddr(tc.listen), tc.listen)
	}
}

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"healthy", http.StatusOK, `{"status":"ok","time":"2024-06-28T12:00:00Z"}`, ""},
		{"unavailable", http.StatusServiceUnavailable, `{"status":"ok"}`, "unexpected status 503"},
		{"degraded", http.StatusOK, `{"status":"starting"}`, `status "starting"`},
		{"not json", http.StatusOK, `<html>`, "decode health response"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != healthPath {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := checkHealth(context.Background(), srv.Client(), srv.URL+healthPath)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	addr := strings.TrimPrefix(srv.URL, "http://")

	require.NoError(t, run(addr))

	srv.Close()
	assert.Error(t, run(addr))
}
