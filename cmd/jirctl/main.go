package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lkoster/jira-mcp/internal/admin"
)

// jirctl drives the cache-diagnostics socket of a running jira-mcp
// server: stats, clear, cleanup, invalidate.

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	client := admin.NewClient(socketPath())

	switch os.Args[1] {
	case "stats":
		st, err := client.Stats()
		if err != nil {
			fail(err)
		}
		fmt.Printf("entries: %d total, %d valid, %d expired\n",
			st.TotalEntries, st.ValidEntries, st.ExpiredEntries)
		for _, k := range st.Keys {
			fmt.Println("  " + k)
		}
	case "clear":
		n, err := client.Clear()
		if err != nil {
			fail(err)
		}
		fmt.Printf("cleared %d entries\n", n)
	case "cleanup":
		n, err := client.Cleanup()
		if err != nil {
			fail(err)
		}
		fmt.Printf("swept %d expired entries\n", n)
	case "invalidate":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		n, err := client.Invalidate(os.Args[2])
		if err != nil {
			fail(err)
		}
		fmt.Printf("invalidated %d entries\n", n)
	case "delete":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		removed, err := client.Delete(os.Args[2])
		if err != nil {
			fail(err)
		}
		if removed {
			fmt.Println("deleted 1 entry")
		} else {
			fmt.Println("no such entry")
		}
	default:
		usage()
		os.Exit(2)
	}
}

func socketPath() string {
	if s := os.Getenv("JIRA_MCP_ADMIN_SOCK"); s != "" {
		return s
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "jira-mcp", "admin.sock")
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: jirctl stats|clear|cleanup|invalidate <pattern>|delete <key>")
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "jirctl:", err)
	os.Exit(1)
}
