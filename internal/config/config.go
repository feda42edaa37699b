package config

import (
	"errors"
	"os"
	"path/filepath"
)

// Config carries everything the server reads from the environment.
type Config struct {
	// BaseURL is the tracker instance, e.g. https://example.atlassian.net.
	BaseURL string
	// Email and APIToken authenticate REST calls (basic auth).
	Email    string
	APIToken string

	// ContextDir is where per-issue markdown context files are written.
	ContextDir string
	// StateDB is the bbolt file holding persistent metadata and settings.
	StateDB string
	// AdminSocket is the Unix socket for cache diagnostics.
	AdminSocket string
}

// FromEnv builds a Config from JIRA_MCP_* environment variables,
// filling unset paths with defaults under the user cache dir.
func FromEnv() (*Config, error) {
	cfg := &Config{
		BaseURL:     os.Getenv("JIRA_MCP_URL"),
		Email:       os.Getenv("JIRA_MCP_EMAIL"),
		APIToken:    os.Getenv("JIRA_MCP_TOKEN"),
		ContextDir:  os.Getenv("JIRA_MCP_CONTEXT_DIR"),
		StateDB:     os.Getenv("JIRA_MCP_STATE_DB"),
		AdminSocket: os.Getenv("JIRA_MCP_ADMIN_SOCK"),
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("config: JIRA_MCP_URL is required")
	}
	if cfg.Email == "" || cfg.APIToken == "" {
		return nil, errors.New("config: JIRA_MCP_EMAIL and JIRA_MCP_TOKEN are required")
	}
	if cfg.ContextDir == "" {
		cfg.ContextDir = filepath.Join(".", ".jira", "context")
	}
	if cfg.StateDB == "" {
		cfg.StateDB = filepath.Join(cacheHome(), "state.bbolt")
	}
	if cfg.AdminSocket == "" {
		cfg.AdminSocket = filepath.Join(cacheHome(), "admin.sock")
	}
	return cfg, nil
}

func cacheHome() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "jira-mcp")
}
