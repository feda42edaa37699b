package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lkoster/jira-mcp/internal/cache"
)

// Client talks to a running server's admin socket.
type Client struct {
	socketPath string
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

func (c *Client) do(req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, 500*time.Millisecond)
	if err != nil {
		return Response{}, fmt.Errorf("admin: connecting to %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, err
	}
	if !resp.OK {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

// Stats fetches the cache's diagnostic snapshot.
func (c *Client) Stats() (cache.Stats, error) {
	resp, err := c.do(Request{Op: "stats"})
	if err != nil {
		return cache.Stats{}, err
	}
	if resp.Stats == nil {
		return cache.Stats{}, errors.New("admin: stats missing from response")
	}
	return *resp.Stats, nil
}

// Clear empties the cache, returning the removed count.
func (c *Client) Clear() (int, error) {
	resp, err := c.do(Request{Op: "clear"})
	return resp.Removed, err
}

// Cleanup sweeps expired entries, returning the removed count.
func (c *Client) Cleanup() (int, error) {
	resp, err := c.do(Request{Op: "cleanup"})
	return resp.Removed, err
}

// Invalidate removes entries matching a glob pattern.
func (c *Client) Invalidate(pattern string) (int, error) {
	resp, err := c.do(Request{Op: "invalidate", Pattern: pattern})
	return resp.Removed, err
}

// Delete removes a single key, reporting whether one existed.
func (c *Client) Delete(key string) (bool, error) {
	resp, err := c.do(Request{Op: "delete", Key: key})
	return resp.Removed > 0, err
}
