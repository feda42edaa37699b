package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lkoster/jira-mcp/internal/jira"
	"github.com/lkoster/jira-mcp/internal/state"
)

const activeProjectSetting = "activeProject"

// CreateIssueHandler returns the MCP tool handler for "create-issue".
// When no project is given it falls back to the persisted active
// project.
func CreateIssueHandler(client *jira.Client, st *state.Store) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summary, err := req.RequireString("summary")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		project := req.GetString("project", "")
		if project == "" && st != nil {
			if p, err := st.Setting(activeProjectSetting); err == nil {
				project = p
			}
		}
		if project == "" {
			return mcp.NewToolResultError("no project given and no active project set; pass 'project' or call set-active-project first"), nil
		}

		key, err := client.CreateIssue(ctx, jira.CreateIssueInput{
			Project:     project,
			Summary:     summary,
			Description: req.GetString("description", ""),
			Type:        req.GetString("type", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Created issue %s in project %s.", key, project)), nil
	}
}

// TransitionIssueHandler returns the MCP tool handler for
// "transition-issue".
func TransitionIssueHandler(client *jira.Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		target, err := req.RequireString("transition")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		applied, err := client.ApplyTransition(ctx, key, target)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Moved %s via %q to status %q.", key, applied.Name, applied.To)), nil
	}
}

// AddCommentHandler returns the MCP tool handler for "add-comment".
func AddCommentHandler(client *jira.Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		body, err := req.RequireString("body")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if strings.TrimSpace(body) == "" {
			return mcp.NewToolResultError("comment body must not be empty"), nil
		}
		if _, err := client.AddComment(ctx, key, body); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Comment added to %s.", key)), nil
	}
}

// ListProjectsHandler returns the MCP tool handler for "list-projects".
func ListProjectsHandler(client *jira.Client) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projects, err := client.Projects(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(projects) == 0 {
			return mcp.NewToolResultText("No projects visible."), nil
		}
		var sb strings.Builder
		for _, p := range projects {
			fmt.Fprintf(&sb, "- %s: %s\n", p.Key, p.Name)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// SetActiveProjectHandler returns the MCP tool handler for
// "set-active-project". The choice persists across restarts.
func SetActiveProjectHandler(client *jira.Client, st *state.Store) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project, err := req.RequireString("project")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if st == nil {
			return mcp.NewToolResultError("no persistent state store configured"), nil
		}
		// Validate against the project list before persisting.
		projects, err := client.Projects(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		found := false
		for _, p := range projects {
			if strings.EqualFold(p.Key, project) {
				project = p.Key
				found = true
				break
			}
		}
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("unknown project %q", project)), nil
		}
		if err := st.SetSetting(activeProjectSetting, project); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		types, err := client.IssueTypes(ctx, project)
		if err != nil && !errors.Is(err, jira.ErrNotFound) {
			types = nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Active project set to %s.", project)
		if len(types) > 0 {
			sb.WriteString(" Issue types: ")
			names := make([]string, 0, len(types))
			for _, t := range types {
				names = append(names, t.Name)
			}
			sb.WriteString(strings.Join(names, ", "))
			sb.WriteString(".")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
