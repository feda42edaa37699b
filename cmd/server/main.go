package main

import (
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lkoster/jira-mcp/internal/admin"
	"github.com/lkoster/jira-mcp/internal/cache"
	"github.com/lkoster/jira-mcp/internal/config"
	"github.com/lkoster/jira-mcp/internal/contextfile"
	"github.com/lkoster/jira-mcp/internal/jira"
	"github.com/lkoster/jira-mcp/internal/logger"
	"github.com/lkoster/jira-mcp/internal/state"
	tools "github.com/lkoster/jira-mcp/internal/tools"
	web "github.com/lkoster/jira-mcp/internal/web"
)

const cleanupInterval = 10 * time.Minute

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting Jira MCP server")

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Errorf("configuration error: %v", err)
		panic(err)
	}

	st, err := state.Open(cfg.StateDB)
	if err != nil {
		logger.Warnf("state store unavailable at %s: %v, continuing without persistence", cfg.StateDB, err)
		st = nil
	} else {
		defer st.Close()
	}

	responseCache := cache.New[[]byte](5 * time.Minute)

	// The cache evicts lazily; sweep it on a ticker so keys that are
	// written but never re-read do not pile up.
	go func() {
		t := time.NewTicker(cleanupInterval)
		defer t.Stop()
		for range t.C {
			if n := responseCache.Cleanup(); n > 0 {
				logger.Infof("cache sweep removed %d expired entries", n)
			}
		}
	}()

	if adm, err := admin.Listen(cfg.AdminSocket, responseCache); err != nil {
		logger.Warnf("admin socket unavailable at %s: %v", cfg.AdminSocket, err)
	} else {
		defer adm.Close()
		go adm.Serve()
		logger.Infof("admin socket listening at %s", cfg.AdminSocket)
	}

	client := jira.NewClient(cfg.BaseURL, cfg.Email, cfg.APIToken, responseCache, st)
	previewer := web.NewPreviewer(responseCache, 15*time.Minute)
	generator := contextfile.NewGenerator(cfg.ContextDir, previewer)
	logger.Infof("initialized tracker client for %s, context dir %s", cfg.BaseURL, cfg.ContextDir)

	s := server.NewMCPServer(
		"Jira MCP",
		"0.2.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("list-issues",
		mcp.WithDescription(multiline(
			"Lists issues from the tracker, by default the current user's open work",
			"\nFunctionality:",
			"- Runs the given JQL query, or 'assigned to me, unresolved' when omitted",
			"- Returns key, summary, status, priority, type and last-updated per issue",
			"\nUsage notes:",
			"- Results are cached for a couple of minutes; mutations invalidate them",
			"- Use get-issue for full detail on a single issue",
		)),
		mcp.WithString("jql", mcp.Description("Optional JQL query overriding the default")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of issues to return (default 20)")),
	), tools.ListIssuesHandler(client))

	s.AddTool(mcp.NewTool("get-issue",
		mcp.WithDescription(multiline(
			"Fetches full detail for one issue",
			"\nFunctionality:",
			"- Returns summary, status, priority, assignee, description and comments",
			"- Lists the status transitions currently available",
		)),
		mcp.WithString("key", mcp.Required(), mcp.Description("The issue key, e.g. ENG-123")),
	), tools.GetIssueHandler(client))

	s.AddTool(mcp.NewTool("create-issue",
		mcp.WithDescription(multiline(
			"Creates a new issue",
			"\nUsage notes:",
			"- 'project' falls back to the persisted active project when omitted",
			"- 'type' defaults to Task",
		)),
		mcp.WithString("summary", mcp.Required(), mcp.Description("One-line issue summary")),
		mcp.WithString("project", mcp.Description("Project key; defaults to the active project")),
		mcp.WithString("description", mcp.Description("Issue description body")),
		mcp.WithString("type", mcp.Description("Issue type name, e.g. Task, Bug")),
	), tools.CreateIssueHandler(client, st))

	s.AddTool(mcp.NewTool("transition-issue",
		mcp.WithDescription(multiline(
			"Moves an issue to a new status",
			"\nUsage notes:",
			"- 'transition' accepts a transition id or a name (case-insensitive)",
			"- Use get-issue to see which transitions are available",
		)),
		mcp.WithString("key", mcp.Required(), mcp.Description("The issue key")),
		mcp.WithString("transition", mcp.Required(), mcp.Description("Transition id or name")),
	), tools.TransitionIssueHandler(client))

	s.AddTool(mcp.NewTool("add-comment",
		mcp.WithDescription("Adds a comment to an issue"),
		mcp.WithString("key", mcp.Required(), mcp.Description("The issue key")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Comment text")),
	), tools.AddCommentHandler(client))

	s.AddTool(mcp.NewTool("list-projects",
		mcp.WithDescription("Lists the projects visible to the authenticated user"),
	), tools.ListProjectsHandler(client))

	s.AddTool(mcp.NewTool("set-active-project",
		mcp.WithDescription(multiline(
			"Sets the default project used by create-issue",
			"\nUsage notes:",
			"- The choice is validated against the project list and persists across restarts",
		)),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project key")),
	), tools.SetActiveProjectHandler(client, st))

	s.AddTool(mcp.NewTool("issue-context",
		mcp.WithDescription(multiline(
			"Writes a markdown context file for an issue",
			"\nFunctionality:",
			"- Fetches the issue and renders key, summary, metadata, description and comments to markdown",
			"- With 'links' enabled, embeds short previews of web pages referenced in the description",
			"\nUsage notes:",
			"- The file lands in the configured context directory, named <KEY>.md",
			"- Read the file afterwards to load the issue into your working context",
		)),
		mcp.WithString("key", mcp.Required(), mcp.Description("The issue key")),
		mcp.WithBoolean("comments", mcp.Description("Include the comment thread (default true)")),
		mcp.WithBoolean("links", mcp.Description("Fetch previews for linked pages (default false)")),
	), tools.IssueContextHandler(client, generator))

	s.AddTool(mcp.NewTool("cache-stats",
		mcp.WithDescription("Reports response-cache entry counts and keys without modifying the cache"),
	), tools.CacheStatsHandler(responseCache))

	s.AddTool(mcp.NewTool("cache-clear",
		mcp.WithDescription(multiline(
			"Flushes the response cache",
			"\nUsage notes:",
			"- With 'pattern', removes only keys matching the glob (* and ? wildcards)",
			"- Without it, removes everything",
		)),
		mcp.WithString("pattern", mcp.Description("Optional glob pattern limiting the flush")),
	), tools.CacheClearHandler(responseCache))

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }
