package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lkoster/jira-mcp/internal/cache"
)

// CacheStatsHandler returns the MCP tool handler for "cache-stats".
func CacheStatsHandler(c *cache.Cache[[]byte]) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st := c.Stats()
		var sb strings.Builder
		fmt.Fprintf(&sb, "Cache entries: %d total, %d valid, %d expired\n",
			st.TotalEntries, st.ValidEntries, st.ExpiredEntries)
		if len(st.Keys) > 0 {
			sb.WriteString("Keys:\n")
			for _, k := range st.Keys {
				fmt.Fprintf(&sb, "- %s\n", k)
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// CacheClearHandler returns the MCP tool handler for "cache-clear".
// An optional glob pattern limits the flush to matching keys.
func CacheClearHandler(c *cache.Cache[[]byte]) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if pattern := req.GetString("pattern", ""); pattern != "" {
			n := c.Invalidate(pattern)
			return mcp.NewToolResultText(fmt.Sprintf("Invalidated %d entries matching %q.", n, pattern)), nil
		}
		n := c.Clear()
		return mcp.NewToolResultText(fmt.Sprintf("Cleared %d cache entries.", n)), nil
	}
}
