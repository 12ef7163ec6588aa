// Command healthcheck exits 0 when the local wwwmin server reports itself
// healthy. It is meant for container HEALTHCHECK instructions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	// defaultAddr matches the server's default listen address.
	defaultAddr = "127.0.0.1:8000"
	healthPath  = "/api/health"
	timeout     = 2 * time.Second
	maxBody     = 4 << 10
)

func main() {
	if err := run(os.Getenv("WWWMIN_LISTEN_ADDR")); err != nil {
		fmt.Fprintln(os.Stderr, "healthcheck:", err)
		os.Exit(1)
	}
}

func run(listenAddr string) error {
	client := cleanhttp.DefaultClient()
	client.Timeout = timeout

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return checkHealth(ctx, client, "http://"+dialAddr(listenAddr)+healthPath)
}

// checkHealth requires a 200 answer whose JSON body has status "ok".
func checkHealth(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("server reports status %q", health.Status)
	}
	return nil
}

// dialAddr turns the server's listen address into one the healthcheck can
// dial from inside the same container. Wildcard hosts become loopback.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil || port == "" {
		return defaultAddr
	}
	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::":
		host = "::1"
	}
	return net.JoinHostPort(host, port)
}
