package admin

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lkoster/jira-mcp/internal/cache"
)

func startTestServer(t *testing.T) (*Client, *cache.Cache[[]byte]) {
	t.Helper()
	c := cache.New[[]byte](time.Minute)
	sock := filepath.Join(t.TempDir(), "admin.sock")
	srv, err := Listen(sock, c)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	go srv.Serve()
	return NewClient(sock), c
}

func TestStatsRoundTrip(t *testing.T) {
	client, c := startTestServer(t)
	c.Set("issues:a", []byte("x"))
	c.SetWithTTL("stale", []byte("y"), -time.Second)

	st, err := client.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalEntries != 2 || st.ValidEntries != 1 || st.ExpiredEntries != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestClearAndCleanup(t *testing.T) {
	client, c := startTestServer(t)
	c.Set("a", []byte("1"))
	c.SetWithTTL("b", []byte("2"), -time.Second)

	n, err := client.Cleanup()
	if err != nil || n != 1 {
		t.Fatalf("cleanup: n=%d err=%v", n, err)
	}
	n, err = client.Clear()
	if err != nil || n != 1 {
		t.Fatalf("clear: n=%d err=%v", n, err)
	}
}

func TestInvalidateOverSocket(t *testing.T) {
	client, c := startTestServer(t)
	c.Set("issues:1", []byte("a"))
	c.Set("issues:2", []byte("b"))
	c.Set("issue:X-1", []byte("c"))

	n, err := client.Invalidate("issues:*")
	if err != nil || n != 2 {
		t.Fatalf("invalidate: n=%d err=%v", n, err)
	}
	if _, ok := c.Get("issue:X-1"); !ok {
		t.Fatal("unrelated key should survive")
	}

	if _, err := client.Invalidate(""); err == nil {
		t.Fatal("expected error for empty pattern")
	}
}

func TestDeleteOverSocket(t *testing.T) {
	client, c := startTestServer(t)
	c.Set("k", []byte("v"))

	removed, err := client.Delete("k")
	if err != nil || !removed {
		t.Fatalf("delete: removed=%v err=%v", removed, err)
	}
	removed, err = client.Delete("k")
	if err != nil || removed {
		t.Fatalf("second delete: removed=%v err=%v", removed, err)
	}
}
