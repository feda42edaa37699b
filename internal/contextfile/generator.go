package contextfile

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/lkoster/jira-mcp/internal/jira"
	"github.com/lkoster/jira-mcp/internal/logger"
	"github.com/lkoster/jira-mcp/internal/web"
)

const maxLinkPreviews = 3

var linkPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// Options control what goes into a generated context file.
type Options struct {
	// IncludeComments appends the issue's comment thread.
	IncludeComments bool
	// IncludeLinks fetches previews for http(s) links found in the
	// description (up to maxLinkPreviews).
	IncludeLinks bool
}

// Generator writes one markdown context file per issue into a target
// directory, for a coding assistant to read alongside the code.
type Generator struct {
	dir       string
	previewer *web.Previewer // nil disables link previews
}

func NewGenerator(dir string, previewer *web.Previewer) *Generator {
	return &Generator{dir: dir, previewer: previewer}
}

// Generate renders the issue to markdown and writes it to
// <dir>/<KEY>.md, returning the file path. An existing file for the
// same issue is overwritten.
func (g *Generator) Generate(ctx context.Context, issue *jira.Issue, opts Options) (string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", err
	}
	content := g.render(ctx, issue, opts)
	path := filepath.Join(g.dir, issue.Key+".md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (g *Generator) render(ctx context.Context, issue *jira.Issue, opts Options) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s: %s\n\n", issue.Key, issue.Summary)

	sb.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Status | %s |\n", orDash(issue.Status))
	fmt.Fprintf(&sb, "| Type | %s |\n", orDash(issue.Type))
	fmt.Fprintf(&sb, "| Priority | %s |\n", orDash(issue.Priority))
	fmt.Fprintf(&sb, "| Assignee | %s |\n", orDash(issue.Assignee))
	fmt.Fprintf(&sb, "| Updated | %s |\n\n", orDash(issue.Updated))

	desc := descriptionMarkdown(issue)
	if desc != "" {
		sb.WriteString("## Description\n\n")
		sb.WriteString(desc)
		sb.WriteString("\n\n")
	}

	if opts.IncludeComments && len(issue.Comments) > 0 {
		sb.WriteString("## Comments\n\n")
		for _, c := range issue.Comments {
			fmt.Fprintf(&sb, "**%s** (%s):\n\n", orDash(c.Author), c.Created)
			body := c.Body
			if c.RenderedBody != "" {
				if md, err := htmlToMarkdown(c.RenderedBody); err == nil {
					body = md
				}
			}
			sb.WriteString(body)
			sb.WriteString("\n\n")
		}
	}

	if opts.IncludeLinks && g.previewer != nil {
		g.appendLinkPreviews(ctx, &sb, issue)
	}
	return sb.String()
}

func (g *Generator) appendLinkPreviews(ctx context.Context, sb *strings.Builder, issue *jira.Issue) {
	links := extractLinks(issue)
	if len(links) == 0 {
		return
	}
	sb.WriteString("## Referenced links\n\n")
	for _, link := range links {
		pv, err := g.previewer.Preview(ctx, link)
		if err != nil {
			logger.Warnf("previewing %s for %s: %v", link, issue.Key, err)
			fmt.Fprintf(sb, "- %s (preview unavailable)\n", link)
			continue
		}
		title := pv.Title
		if title == "" {
			title = link
		}
		fmt.Fprintf(sb, "### %s\n\n%s\n\n", title, link)
		if pv.Description != "" {
			sb.WriteString(pv.Description)
			sb.WriteString("\n\n")
		}
		if pv.Text != "" {
			sb.WriteString(pv.Text)
			sb.WriteString("\n\n")
		}
	}
}

// descriptionMarkdown prefers the server-rendered HTML, converted to
// markdown, over the raw wiki-markup description.
func descriptionMarkdown(issue *jira.Issue) string {
	if issue.RenderedDescription != "" {
		if md, err := htmlToMarkdown(issue.RenderedDescription); err == nil {
			return strings.TrimSpace(md)
		}
	}
	return strings.TrimSpace(issue.Description)
}

// htmlToMarkdown strips non-content elements before converting, so
// tracker chrome does not leak into the context file.
func htmlToMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, iframe, img, svg").Remove()
	cleaned, err := doc.Html()
	if err != nil {
		return "", err
	}
	return htmltomarkdown.ConvertString(cleaned)
}

// extractLinks pulls http(s) links out of the issue description,
// anchors in the rendered HTML first, bare URLs in the raw text as a
// fallback, deduplicated and capped.
func extractLinks(issue *jira.Issue) []string {
	seen := make(map[string]struct{})
	var links []string
	add := func(u string) {
		u = strings.TrimRight(u, ".,;")
		if _, ok := seen[u]; ok || len(links) >= maxLinkPreviews {
			return
		}
		seen[u] = struct{}{}
		links = append(links, u)
	}

	if issue.RenderedDescription != "" {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(issue.RenderedDescription))); err == nil {
			doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
				href := strings.TrimSpace(s.AttrOr("href", ""))
				if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
					add(href)
				}
			})
		}
	}
	for _, m := range linkPattern.FindAllString(issue.Description, -1) {
		add(m)
	}
	return links
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
