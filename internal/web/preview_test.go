package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lkoster/jira-mcp/internal/cache"
)

const pageFixture = `<!DOCTYPE html>
<html>
<head>
  <title>Release runbook</title>
  <meta name="description" content="Steps for the weekly release.">
</head>
<body>
  <script>trackEverything();</script>
  <h1>Release runbook</h1>
  <p>Tag the build, then <strong>verify</strong> staging.</p>
</body>
</html>`

func TestPreviewFetchesAndCaches(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(pageFixture))
	}))
	defer srv.Close()

	p := NewPreviewer(cache.New[[]byte](time.Minute), time.Minute)
	pv, err := p.Preview(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if pv.Title != "Release runbook" {
		t.Fatalf("unexpected title %q", pv.Title)
	}
	if pv.Description != "Steps for the weekly release." {
		t.Fatalf("unexpected description %q", pv.Description)
	}
	if !strings.Contains(pv.Text, "verify") {
		t.Fatalf("expected body text in preview, got %q", pv.Text)
	}
	if strings.Contains(pv.Text, "trackEverything") {
		t.Fatal("scripts must be stripped")
	}

	if _, err := p.Preview(context.Background(), srv.URL); err != nil {
		t.Fatalf("second preview: %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("expected second preview to hit the cache, got %d fetches", n)
	}
}

func TestPreviewRejectsBadScheme(t *testing.T) {
	p := NewPreviewer(cache.New[[]byte](time.Minute), time.Minute)
	if _, err := p.Preview(context.Background(), "ftp://example.com"); err == nil {
		t.Fatal("expected error for non-http url")
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", maxPreviewText+100)
	got := truncate(long, maxPreviewText)
	if len(got) <= maxPreviewText {
		// marker appended
		t.Fatalf("unexpected truncation result length %d", len(got))
	}
	if !strings.HasSuffix(got, "[preview trimmed]") {
		t.Fatal("expected trim marker")
	}
	if truncate("short", maxPreviewText) != "short" {
		t.Fatal("short strings pass through")
	}
}
