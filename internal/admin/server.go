package admin

import (
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"

	"github.com/lkoster/jira-mcp/internal/cache"
	"github.com/lkoster/jira-mcp/internal/logger"
)

// Server exposes the response cache's diagnostic operations over a
// Unix domain socket, so stats and flushes can be driven from outside
// the MCP stdio session while the server runs.
type Server struct {
	l     net.Listener
	cache *cache.Cache[[]byte]
}

// Listen binds the admin socket, replacing any stale socket file.
func Listen(sock string, c *cache.Cache[[]byte]) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(sock), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(sock)
	l, err := net.Listen("unix", sock)
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(sock, 0o600)
	return &Server{l: l, cache: c}, nil
}

// Serve accepts connections until Close. Run it on its own goroutine.
func (s *Server) Serve() {
	for {
		conn, err := s.l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting and unblocks Serve.
func (s *Server) Close() error {
	return s.l.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		_ = enc.Encode(s.handle(req))
	}
}

func (s *Server) handle(req Request) Response {
	switch req.Op {
	case "stats":
		st := s.cache.Stats()
		return Response{OK: true, Stats: &st}
	case "clear":
		n := s.cache.Clear()
		logger.Infof("admin: cleared %d cache entries", n)
		return Response{OK: true, Removed: n}
	case "cleanup":
		n := s.cache.Cleanup()
		logger.Infof("admin: swept %d expired cache entries", n)
		return Response{OK: true, Removed: n}
	case "invalidate":
		if req.Pattern == "" {
			return Response{OK: false, Error: "invalidate requires a pattern"}
		}
		n := s.cache.Invalidate(req.Pattern)
		logger.Infof("admin: invalidated %d entries matching %q", n, req.Pattern)
		return Response{OK: true, Removed: n}
	case "delete":
		if req.Key == "" {
			return Response{OK: false, Error: "delete requires a key"}
		}
		if s.cache.Delete(req.Key) {
			return Response{OK: true, Removed: 1}
		}
		return Response{OK: true, Removed: 0}
	default:
		return Response{OK: false, Error: "unknown op"}
	}
}
