package admin

import "github.com/lkoster/jira-mcp/internal/cache"

// JSON protocol for the cache-diagnostics socket. One request, one
// response, json.Encoder/Decoder per connection.

type Request struct {
	Op      string `json:"op"` // "stats" | "clear" | "cleanup" | "invalidate" | "delete"
	Pattern string `json:"pattern,omitempty"`
	Key     string `json:"key,omitempty"`
}

type Response struct {
	OK      bool         `json:"ok"`
	Removed int          `json:"removed,omitempty"`
	Stats   *cache.Stats `json:"stats,omitempty"`
	Error   string       `json:"error,omitempty"`
}
