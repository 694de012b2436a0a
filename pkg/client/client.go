// Package client calls the podcfgd settings API over its Unix socket. It
// uses the request and response types from pkg/api.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/lc/podcfg/internal/podconfig"
	"github.com/lc/podcfg/internal/socket"
	"github.com/lc/podcfg/pkg/api"
)

// Error is a non-2xx answer from the daemon.
type Error struct {
	Status   int
	Response api.ErrorResponse
}

func (e *Error) Error() string {
	if len(e.Response.Fields) == 0 {
		return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Response.Error)
	}
	parts := make([]string, len(e.Response.Fields))
	for i, f := range e.Response.Fields {
		parts[i] = f.Field + ": " + f.Error
	}
	return fmt.Sprintf("daemon returned %d: %s", e.Status, strings.Join(parts, "; "))
}

// Client holds an http.Client wired to a Unix socket.
type Client struct {
	hc   *http.Client
	base string
}

// New returns a Client for the socket at socketPath. Dialing waits for a
// daemon that is still starting up.
func New(socketPath string) *Client {
	dial := func(ctx context.Context, _, _ string) (net.Conn, error) {
		return socket.ConnectContext(ctx, socketPath)
	}
	return &Client{
		hc:   &http.Client{Transport: &http.Transport{DialContext: dial}},
		base: "http://unix",
	}
}

// Settings returns the published settings.
func (c *Client) Settings(ctx context.Context) (api.SettingsResponse, error) {
	var out api.SettingsResponse
	err := c.do(ctx, http.MethodGet, "/v1/settings", nil, &out)
	return out, err
}

// Update applies patch over the stored overrides.
func (c *Client) Update(ctx context.Context, patch podconfig.Overrides) (api.SettingsResponse, error) {
	var out api.SettingsResponse
	err := c.do(ctx, http.MethodPut, "/v1/settings", patch, &out)
	return out, err
}

// Reset drops every override.
func (c *Client) Reset(ctx context.Context) (api.SettingsResponse, error) {
	var out api.SettingsResponse
	err := c.do(ctx, http.MethodPost, "/v1/settings/reset", nil, &out)
	return out, err
}

// Status returns daemon health.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var out api.StatusResponse
	err := c.do(ctx, http.MethodGet, "/v1/status", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, payload, v any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr.Response); err != nil {
			apiErr.Response.Error = resp.Status
		}
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
