package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lkoster/jira-mcp/internal/jira"
)

// ListIssuesHandler returns the MCP tool handler for "list-issues".
func ListIssuesHandler(client *jira.Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		jql := req.GetString("jql", "")
		limit := req.GetInt("limit", 20)

		issues, err := client.SearchIssues(ctx, jql, limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatIssueList(issues)), nil
	}
}

// GetIssueHandler returns the MCP tool handler for "get-issue".
func GetIssueHandler(client *jira.Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		issue, err := client.Issue(ctx, key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		transitions, err := client.Transitions(ctx, key)
		if err != nil {
			transitions = nil // detail still useful without them
		}
		return mcp.NewToolResultText(formatIssue(issue, transitions)), nil
	}
}

func formatIssueList(issues []jira.Issue) string {
	if len(issues) == 0 {
		return "No issues found."
	}
	var sb strings.Builder
	for i, is := range issues {
		fmt.Fprintf(&sb, "%d. [%s] %s\n   status: %s", i+1, is.Key, is.Summary, is.Status)
		if is.Priority != "" {
			fmt.Fprintf(&sb, " | priority: %s", is.Priority)
		}
		if is.Type != "" {
			fmt.Fprintf(&sb, " | type: %s", is.Type)
		}
		if is.Updated != "" {
			fmt.Fprintf(&sb, " | updated: %s", is.Updated)
		}
		if i < len(issues)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

func formatIssue(is *jira.Issue, transitions []jira.Transition) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", is.Key, is.Summary)
	fmt.Fprintf(&sb, "Status: %s | Type: %s | Priority: %s | Assignee: %s\n",
		is.Status, is.Type, is.Priority, is.Assignee)
	if is.Updated != "" {
		fmt.Fprintf(&sb, "Updated: %s\n", is.Updated)
	}
	if is.Description != "" {
		sb.WriteString("\nDescription:\n")
		sb.WriteString(is.Description)
		sb.WriteString("\n")
	}
	if len(is.Comments) > 0 {
		fmt.Fprintf(&sb, "\nComments (%d):\n", len(is.Comments))
		for _, c := range is.Comments {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", c.Author, c.Created, c.Body)
		}
	}
	if len(transitions) > 0 {
		sb.WriteString("\nAvailable transitions:\n")
		for _, t := range transitions {
			fmt.Fprintf(&sb, "- %s (id %s) -> %s\n", t.Name, t.ID, t.To)
		}
	}
	return sb.String()
}
