package jira

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lkoster/jira-mcp/internal/cache"
)

const searchFixture = `{
  "issues": [
    {
      "key": "ENG-1",
      "fields": {
        "summary": "Fix login redirect",
        "status": {"name": "In Progress"},
        "assignee": {"displayName": "Sam Doe"},
        "priority": {"name": "High"},
        "issuetype": {"name": "Bug"},
        "updated": "2025-06-01T10:00:00.000+0000"
      }
    },
    {
      "key": "ENG-2",
      "fields": {
        "summary": "Add audit log",
        "status": {"name": "To Do"},
        "issuetype": {"name": "Task"}
      }
    }
  ]
}`

const issueFixture = `{
  "key": "ENG-1",
  "fields": {
    "summary": "Fix login redirect",
    "description": "Users bounce back to /login.",
    "status": {"name": "In Progress"},
    "comment": {"comments": [
      {"author": {"displayName": "Sam Doe"}, "created": "2025-06-01T09:00:00.000+0000", "body": "Reproduced on staging."}
    ]}
  },
  "renderedFields": {
    "description": "<p>Users bounce back to <b>/login</b>.</p>",
    "comment": {"comments": [{"body": "<p>Reproduced on staging.</p>"}]}
  }
}`

const transitionsFixture = `{
  "transitions": [
    {"id": "21", "name": "Start Progress", "to": {"name": "In Progress"}},
    {"id": "31", "name": "Done", "to": {"name": "Done"}}
  ]
}`

type fixtureServer struct {
	*httptest.Server
	searches    atomic.Int64
	details     atomic.Int64
	transitions atomic.Int64
	posts       atomic.Int64
}

func newFixtureServer(t *testing.T) *fixtureServer {
	t.Helper()
	fs := &fixtureServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		fs.searches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchFixture))
	})
	mux.HandleFunc("GET /rest/api/2/issue/ENG-1", func(w http.ResponseWriter, r *http.Request) {
		fs.details.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(issueFixture))
	})
	mux.HandleFunc("GET /rest/api/2/issue/ENG-1/transitions", func(w http.ResponseWriter, r *http.Request) {
		fs.transitions.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(transitionsFixture))
	})
	mux.HandleFunc("POST /rest/api/2/issue/ENG-1/transitions", func(w http.ResponseWriter, r *http.Request) {
		fs.posts.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /rest/api/2/issue/ENG-1/comment", func(w http.ResponseWriter, r *http.Request) {
		fs.posts.Add(1)
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"author":  map[string]string{"displayName": "Sam Doe"},
			"created": "2025-06-01T11:00:00.000+0000",
			"body":    in["body"],
		})
	})
	mux.HandleFunc("POST /rest/api/2/issue", func(w http.ResponseWriter, r *http.Request) {
		fs.posts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"key": "ENG-99"}`))
	})
	mux.HandleFunc("GET /rest/api/2/project", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": "10000", "key": "ENG", "name": "Engineering"}]`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func newTestClient(t *testing.T) (*Client, *fixtureServer) {
	t.Helper()
	fs := newFixtureServer(t)
	c := NewClient(fs.URL, "dev@example.com", "token", cache.New[[]byte](5*time.Minute), nil)
	return c, fs
}

func TestSearchIssuesCaches(t *testing.T) {
	c, fs := newTestClient(t)
	ctx := context.Background()

	issues, err := c.AssignedIssues(ctx, 20)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(issues) != 2 || issues[0].Key != "ENG-1" || issues[0].Status != "In Progress" {
		t.Fatalf("unexpected issues: %+v", issues)
	}

	if _, err := c.AssignedIssues(ctx, 20); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if n := fs.searches.Load(); n != 1 {
		t.Fatalf("expected second search to be served from cache, got %d requests", n)
	}

	// A different limit is a different cache key.
	if _, err := c.AssignedIssues(ctx, 10); err != nil {
		t.Fatalf("third search: %v", err)
	}
	if n := fs.searches.Load(); n != 2 {
		t.Fatalf("expected distinct params to refetch, got %d requests", n)
	}
}

func TestIssueDetail(t *testing.T) {
	c, fs := newTestClient(t)
	ctx := context.Background()

	is, err := c.Issue(ctx, "ENG-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if is.Summary != "Fix login redirect" {
		t.Fatalf("unexpected summary %q", is.Summary)
	}
	if is.RenderedDescription == "" {
		t.Fatal("expected rendered description")
	}
	if len(is.Comments) != 1 || is.Comments[0].Author != "Sam Doe" {
		t.Fatalf("unexpected comments: %+v", is.Comments)
	}
	if is.Comments[0].RenderedBody == "" {
		t.Fatal("expected rendered comment body")
	}

	if _, err := c.Issue(ctx, "ENG-1"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if n := fs.details.Load(); n != 1 {
		t.Fatalf("expected detail to be cached, got %d requests", n)
	}
}

func TestIssueNotFound(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.Issue(context.Background(), "NOPE-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyTransitionInvalidates(t *testing.T) {
	c, fs := newTestClient(t)
	ctx := context.Background()

	// Warm the listing and detail caches.
	if _, err := c.AssignedIssues(ctx, 20); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := c.Issue(ctx, "ENG-1"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	applied, err := c.ApplyTransition(ctx, "ENG-1", "done")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if applied.ID != "31" || applied.To != "Done" {
		t.Fatalf("matched wrong transition: %+v", applied)
	}
	if n := fs.posts.Load(); n != 1 {
		t.Fatalf("expected one POST, got %d", n)
	}

	// Listings and detail refetch after the mutation.
	if _, err := c.AssignedIssues(ctx, 20); err != nil {
		t.Fatalf("search after transition: %v", err)
	}
	if n := fs.searches.Load(); n != 2 {
		t.Fatalf("expected listing cache to be invalidated, got %d search requests", n)
	}
	if _, err := c.Issue(ctx, "ENG-1"); err != nil {
		t.Fatalf("issue after transition: %v", err)
	}
	if n := fs.details.Load(); n != 2 {
		t.Fatalf("expected detail cache to be invalidated, got %d detail requests", n)
	}
}

func TestApplyTransitionUnknown(t *testing.T) {
	c, _ := newTestClient(t)
	if _, err := c.ApplyTransition(context.Background(), "ENG-1", "Reopen"); err == nil {
		t.Fatal("expected error for unknown transition")
	}
}

func TestAddComment(t *testing.T) {
	c, _ := newTestClient(t)
	cm, err := c.AddComment(context.Background(), "ENG-1", "On it.")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if cm.Body != "On it." || cm.Author != "Sam Doe" {
		t.Fatalf("unexpected comment: %+v", cm)
	}
}

func TestCreateIssueValidation(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	if _, err := c.CreateIssue(ctx, CreateIssueInput{Summary: "x"}); err == nil {
		t.Fatal("expected error for missing project")
	}
	if _, err := c.CreateIssue(ctx, CreateIssueInput{Project: "ENG"}); err == nil {
		t.Fatal("expected error for missing summary")
	}

	key, err := c.CreateIssue(ctx, CreateIssueInput{Project: "ENG", Summary: "New thing"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if key != "ENG-99" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestProjects(t *testing.T) {
	c, _ := newTestClient(t)
	ps, err := c.Projects(context.Background())
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	if len(ps) != 1 || ps[0].Key != "ENG" {
		t.Fatalf("unexpected projects: %+v", ps)
	}
}

func TestSearchKeyDistinguishesParams(t *testing.T) {
	if searchKey("a", 10) == searchKey("a", 20) {
		t.Fatal("limit must participate in the cache key")
	}
	if searchKey("a", 10) == searchKey("b", 10) {
		t.Fatal("jql must participate in the cache key")
	}
}
