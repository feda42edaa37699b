package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lkoster/jira-mcp/internal/cache"
	"github.com/lkoster/jira-mcp/internal/logger"
	"github.com/lkoster/jira-mcp/internal/state"
)

// Per-endpoint staleness tolerances. Metadata barely moves; issue and
// listing data goes stale the moment anyone touches the board.
const (
	metadataTTL    = 1 * time.Hour
	listTTL        = 2 * time.Minute
	issueTTL       = 5 * time.Minute
	transitionsTTL = 5 * time.Minute
)

// DefaultJQL selects the current user's open work, most recently
// updated first.
const DefaultJQL = "assignee = currentUser() AND resolution = Unresolved ORDER BY updated DESC"

var ErrNotFound = errors.New("jira: not found")

// Client wraps the tracker's REST API. It owns the cache key layout
// ("issues:<hash>", "issue:<key>", "transitions:<key>", "projects",
// "issuetypes:<project>") and the TTL per endpoint; every mutation
// invalidates the prefixes it makes stale. Slow-moving metadata is
// additionally persisted in the state store so a restart does not
// refetch it.
type Client struct {
	http    *http.Client
	baseURL string
	email   string
	token   string
	cache   *cache.Cache[[]byte]
	state   *state.Store // optional; nil disables the disk level
}

func NewClient(baseURL, email, token string, store *cache.Cache[[]byte], st *state.Store) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   email,
		token:   token,
		cache:   store,
		state:   st,
	}
}

// SearchIssues runs a JQL query, serving from cache when a previous
// identical search is still fresh.
func (c *Client) SearchIssues(ctx context.Context, jql string, limit int) ([]Issue, error) {
	if strings.TrimSpace(jql) == "" {
		jql = DefaultJQL
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	key := searchKey(jql, limit)
	var cached []Issue
	if c.fromCache(key, &cached) {
		return cached, nil
	}

	q := url.Values{
		"jql":        {jql},
		"maxResults": {fmt.Sprint(limit)},
		"fields":     {"summary,status,assignee,priority,issuetype,updated"},
	}
	var resp searchResponse
	if err := c.get(ctx, "/rest/api/2/search", q, &resp); err != nil {
		return nil, err
	}
	issues := make([]Issue, 0, len(resp.Issues))
	for _, w := range resp.Issues {
		issues = append(issues, w.toIssue())
	}
	c.toCache(key, issues, listTTL)
	return issues, nil
}

// AssignedIssues lists the current user's open issues.
func (c *Client) AssignedIssues(ctx context.Context, limit int) ([]Issue, error) {
	return c.SearchIssues(ctx, DefaultJQL, limit)
}

// Issue fetches full detail for one issue, rendered description and
// comments included.
func (c *Client) Issue(ctx context.Context, key string) (*Issue, error) {
	ck := "issue:" + key
	var cached Issue
	if c.fromCache(ck, &cached) {
		return &cached, nil
	}

	q := url.Values{
		"expand": {"renderedFields"},
		"fields": {"summary,status,assignee,priority,issuetype,updated,description,comment"},
	}
	var w wireIssue
	if err := c.get(ctx, "/rest/api/2/issue/"+url.PathEscape(key), q, &w); err != nil {
		return nil, err
	}
	is := w.toIssue()
	c.toCache(ck, is, issueTTL)
	return &is, nil
}

// Transitions lists the status moves currently legal for an issue.
func (c *Client) Transitions(ctx context.Context, key string) ([]Transition, error) {
	ck := "transitions:" + key
	var cached []Transition
	if c.fromCache(ck, &cached) {
		return cached, nil
	}

	var w wireTransitions
	if err := c.get(ctx, "/rest/api/2/issue/"+url.PathEscape(key)+"/transitions", nil, &w); err != nil {
		return nil, err
	}
	ts := make([]Transition, 0, len(w.Transitions))
	for _, t := range w.Transitions {
		tr := Transition{ID: t.ID, Name: t.Name}
		if t.To != nil {
			tr.To = t.To.Name
		}
		ts = append(ts, tr)
	}
	c.toCache(ck, ts, transitionsTTL)
	return ts, nil
}

// ApplyTransition moves an issue to a new status. idOrName matches a
// transition ID exactly or a transition name case-insensitively.
func (c *Client) ApplyTransition(ctx context.Context, key, idOrName string) (*Transition, error) {
	ts, err := c.Transitions(ctx, key)
	if err != nil {
		return nil, err
	}
	var match *Transition
	for i := range ts {
		if ts[i].ID == idOrName || strings.EqualFold(ts[i].Name, idOrName) {
			match = &ts[i]
			break
		}
	}
	if match == nil {
		return nil, fmt.Errorf("jira: issue %s has no transition %q", key, idOrName)
	}

	body := map[string]any{"transition": map[string]string{"id": match.ID}}
	if err := c.post(ctx, "/rest/api/2/issue/"+url.PathEscape(key)+"/transitions", body, nil); err != nil {
		return nil, err
	}
	c.invalidateIssue(key)
	c.cache.Delete("transitions:" + key)
	return match, nil
}

// AddComment posts a comment on an issue.
func (c *Client) AddComment(ctx context.Context, key, text string) (*Comment, error) {
	var w wireComment
	if err := c.post(ctx, "/rest/api/2/issue/"+url.PathEscape(key)+"/comment", map[string]string{"body": text}, &w); err != nil {
		return nil, err
	}
	c.invalidateIssue(key)
	cm := Comment{Created: w.Created, Body: w.Body}
	if w.Author != nil {
		cm.Author = w.Author.DisplayName
	}
	return &cm, nil
}

// CreateIssue creates a new issue and returns its key.
func (c *Client) CreateIssue(ctx context.Context, in CreateIssueInput) (string, error) {
	if in.Project == "" {
		return "", errors.New("jira: create issue requires a project")
	}
	if strings.TrimSpace(in.Summary) == "" {
		return "", errors.New("jira: create issue requires a summary")
	}
	issueType := in.Type
	if issueType == "" {
		issueType = "Task"
	}
	body := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": in.Project},
			"summary":     in.Summary,
			"description": in.Description,
			"issuetype":   map[string]string{"name": issueType},
		},
	}
	var created struct {
		Key string `json:"key"`
	}
	if err := c.post(ctx, "/rest/api/2/issue", body, &created); err != nil {
		return "", err
	}
	c.cache.Invalidate("issues:*")
	return created.Key, nil
}

// Projects lists projects, reading memory first, then the persistent
// snapshot, then the network.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var cached []Project
	if c.fromCache("projects", &cached) {
		return cached, nil
	}
	if c.state != nil {
		var snap []Project
		if err := c.state.GetMeta("projects", &snap); err == nil {
			c.toCache("projects", snap, metadataTTL)
			return snap, nil
		}
	}

	var ws []wireProject
	if err := c.get(ctx, "/rest/api/2/project", nil, &ws); err != nil {
		return nil, err
	}
	ps := make([]Project, 0, len(ws))
	for _, w := range ws {
		ps = append(ps, Project{ID: w.ID, Key: w.Key, Name: w.Name})
	}
	c.toCache("projects", ps, metadataTTL)
	if c.state != nil {
		if err := c.state.PutMeta("projects", ps, metadataTTL); err != nil {
			logger.Warnf("persisting projects snapshot: %v", err)
		}
	}
	return ps, nil
}

// IssueTypes lists the issue types available in a project.
func (c *Client) IssueTypes(ctx context.Context, projectKey string) ([]IssueType, error) {
	ck := "issuetypes:" + projectKey
	var cached []IssueType
	if c.fromCache(ck, &cached) {
		return cached, nil
	}
	if c.state != nil {
		var snap []IssueType
		if err := c.state.GetMeta(ck, &snap); err == nil {
			c.toCache(ck, snap, metadataTTL)
			return snap, nil
		}
	}

	var w wireProject
	if err := c.get(ctx, "/rest/api/2/project/"+url.PathEscape(projectKey), nil, &w); err != nil {
		return nil, err
	}
	ts := make([]IssueType, 0, len(w.IssueTypes))
	for _, it := range w.IssueTypes {
		ts = append(ts, IssueType{ID: it.ID, Name: it.Name, Subtask: it.Subtask})
	}
	c.toCache(ck, ts, metadataTTL)
	if c.state != nil {
		if err := c.state.PutMeta(ck, ts, metadataTTL); err != nil {
			logger.Warnf("persisting issue types snapshot: %v", err)
		}
	}
	return ts, nil
}

// Myself returns the authenticated user.
func (c *Client) Myself(ctx context.Context) (*User, error) {
	var cached User
	if c.fromCache("myself", &cached) {
		return &cached, nil
	}
	var w wireUser
	if err := c.get(ctx, "/rest/api/2/myself", nil, &w); err != nil {
		return nil, err
	}
	u := User{AccountID: w.AccountID, DisplayName: w.DisplayName, Email: w.EmailAddress}
	c.toCache("myself", u, metadataTTL)
	return &u, nil
}

// invalidateIssue drops everything a write to key makes stale: the
// detail entry and every cached listing that might include it.
func (c *Client) invalidateIssue(key string) {
	c.cache.Delete("issue:" + key)
	n := c.cache.Invalidate("issues:*")
	logger.Infof("invalidated issue %s and %d cached listings", key, n)
}

// fromCache unmarshals the cached JSON payload for key into out,
// reporting whether a fresh entry was found.
func (c *Client) fromCache(key string, out any) bool {
	v, ok := c.cache.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(v, out) == nil
}

// toCache stores v as JSON under key. Marshal failures just skip the
// cache; the caller already has the value.
func (c *Client) toCache(key string, v any, ttl time.Duration) {
	if b, err := json.Marshal(v); err == nil {
		c.cache.SetWithTTL(key, b, ttl)
	}
}

func searchKey(jql string, limit int) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%d", jql, limit)
	return fmt.Sprintf("issues:%08x", h.Sum32())
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("jira: %s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("jira: decoding %s: %w", req.URL.Path, err)
	}
	return nil
}
