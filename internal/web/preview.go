package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/lkoster/jira-mcp/internal/cache"
)

const (
	requestTimeout = 15 * time.Second
	maxBodyBytes   = 512 * 1024
	maxPreviewText = 2048
)

// Preview is a condensed markdown rendering of a linked web page,
// suitable for embedding into an issue context file.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Text        string `json:"text"`
}

// Previewer fetches pages referenced from issue descriptions and
// reduces them to a short markdown summary. Results are cached under
// "preview:<url>" so repeated context generation does not refetch.
type Previewer struct {
	c     *colly.Collector
	cache *cache.Cache[[]byte]
	ttl   time.Duration
}

func NewPreviewer(store *cache.Cache[[]byte], ttl time.Duration) *Previewer {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       500 * time.Millisecond,
	})
	c.SetRequestTimeout(requestTimeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", nextUserAgent())
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})
	return &Previewer{c: c, cache: store, ttl: ttl}
}

func previewKey(rawURL string) string { return "preview:" + rawURL }

// Preview fetches rawURL and returns its condensed summary.
func (p *Previewer) Preview(ctx context.Context, rawURL string) (*Preview, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, errors.New("url must start with http:// or https://")
	}
	if v, ok := p.cache.Get(previewKey(rawURL)); ok {
		var pv Preview
		if json.Unmarshal(v, &pv) == nil {
			return &pv, nil
		}
	}

	var body []byte
	var contentType string
	p.c.OnResponse(func(r *colly.Response) {
		if ctx.Err() != nil {
			return
		}
		body = append([]byte(nil), r.Body...)
		contentType = r.Headers.Get("Content-Type")
	})
	if err := p.c.Visit(rawURL); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}
	if len(body) > maxBodyBytes {
		body = body[:maxBodyBytes]
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "text/") {
		return nil, errors.New("unsupported content type for preview")
	}

	pv := &Preview{URL: rawURL}
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		doc.Find("script, style, noscript, iframe, svg, img, video, audio, form, nav, header, footer, aside").Remove()
		pv.Title = strings.TrimSpace(doc.Find("head > title").First().Text())
		pv.Description = strings.TrimSpace(doc.Find("meta[name=description]").AttrOr("content", ""))

		htmlStr, err := doc.Html()
		if err != nil {
			return nil, err
		}
		if md, err := htmltomarkdown.ConvertString(htmlStr); err == nil {
			pv.Text = md
		} else {
			pv.Text = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
		}
	} else {
		pv.Text = string(body)
	}
	pv.Text = truncate(strings.TrimSpace(pv.Text), maxPreviewText)

	if b, err := json.Marshal(pv); err == nil {
		p.cache.SetWithTTL(previewKey(rawURL), b, p.ttl)
	}
	return pv, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... [preview trimmed]"
}
