package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lkoster/jira-mcp/internal/contextfile"
	"github.com/lkoster/jira-mcp/internal/jira"
)

// IssueContextHandler returns the MCP tool handler for
// "issue-context": fetch the issue and write its markdown context
// file for the assistant to read.
func IssueContextHandler(client *jira.Client, gen *contextfile.Generator) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		issue, err := client.Issue(ctx, key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		path, err := gen.Generate(ctx, issue, contextfile.Options{
			IncludeComments: req.GetBool("comments", true),
			IncludeLinks:    req.GetBool("links", false),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Context file for %s written to %s.", key, path)), nil
	}
}
