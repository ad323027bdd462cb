// Package client talks to the hive daemon's unix-socket API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/projecteru2/hive/daemon"
	"github.com/projecteru2/hive/lifecycle"
	"github.com/projecteru2/hive/types"
	"github.com/projecteru2/hive/utils"
)

// requestTimeout bounds a single API call. Enable/Disable block for the
// whole rendezvous, so this is generous.
const requestTimeout = 60 * time.Second

// Client is a thin wrapper over the daemon API implementing
// lifecycle.Lifecycle, so CLI handlers are agnostic about whether they talk
// to an in-process controller or a remote daemon.
type Client struct {
	socketPath string
	hc         *http.Client
}

// compile-time interface check.
var _ lifecycle.Lifecycle = (*Client)(nil)

// New creates a Client for the daemon socket at socketPath.
func New(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		hc: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
}

// WaitReady polls the socket until the daemon answers /status.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	return utils.WaitFor(ctx, timeout, 100*time.Millisecond, func() (bool, error) {
		conn, err := net.DialTimeout("unix", c.socketPath, time.Second)
		if err != nil {
			return false, nil //nolint:nilerr // not up yet, keep polling
		}
		_ = conn.Close()
		return true, nil
	})
}

// Enable requests hypervisor activation.
func (c *Client) Enable(ctx context.Context, sys *types.SystemDescriptor) error {
	return c.do(ctx, http.MethodPut, "/enable", sys, nil)
}

// Disable requests hypervisor deactivation.
func (c *Client) Disable(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/disable", nil, nil)
}

// CreateCell creates a cell with its preload images.
func (c *Client) CreateCell(ctx context.Context, desc *types.CellDescriptor, images []types.PreloadImage) (uint32, error) {
	var resp daemon.CreateCellResponse
	err := c.do(ctx, http.MethodPost, "/cells", daemon.CreateCellRequest{
		Descriptor: *desc,
		Images:     images,
	}, &resp)
	return resp.ID, err
}

// DestroyCell destroys the named cell.
func (c *Client) DestroyCell(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/cells/"+name, nil, nil)
}

// Enabled reads the status attribute. Unreachable daemon reads as disabled.
func (c *Client) Enabled() bool {
	st, err := c.Status(context.Background())
	return err == nil && st.Enabled
}

// Cells lists the live cells.
func (c *Client) Cells(ctx context.Context) ([]lifecycle.Cell, error) {
	var cells []lifecycle.Cell
	if err := c.do(ctx, http.MethodGet, "/cells", nil, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

// Status returns the full status surface.
func (c *Client) Status(ctx context.Context) (*daemon.StatusResponse, error) {
	var st daemon.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// do performs one JSON request. Non-2xx responses are decoded into the wire
// error body and mapped back to the lifecycle sentinels, so callers can use
// errors.Is/As exactly as against a local controller.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, "http://localhost"+path, body)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode response %s: %w", path, err)
			}
		}
		return nil
	}

	var werr daemon.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&werr); err != nil {
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}
	return daemon.KindError(&werr)
}
