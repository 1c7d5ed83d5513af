package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// NoArticleContainer is returned when no known content container exists
	NoArticleContainer = "無法自動提取文章主體，請查看原始網頁。"
	// NoArticleText is returned when the container holds no paragraph text
	NoArticleText = "無法提取有效文章內容"
)

// articleSelectors are tried in order; the first match is the article body
var articleSelectors = []string{
	"article",
	"main",
	".content",
	".post-content",
	".entry-content",
	"#content",
	".article-body",
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
}

// Article is the extracted page
type Article struct {
	Title string
	Text  string
}

// ArticleResolver downloads a page and extracts its main text
type ArticleResolver struct {
	client     *http.Client
	maxRetries int
	pacer      Pacer
	logger     *slog.Logger
}

func NewArticleResolver(client *http.Client, maxRetries int, pacer Pacer, logger *slog.Logger) *ArticleResolver {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &ArticleResolver{
		client:     client,
		maxRetries: maxRetries,
		pacer:      pacer,
		logger:     logger.With("component", "article"),
	}
}

// Resolve returns the article text of url. A page without a recognizable
// body still resolves, to one of the fixed fallback strings.
func (a *ArticleResolver) Resolve(ctx context.Context, url string) (string, error) {
	article, err := a.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return article.Text, nil
}

// Fetch downloads url with retries and extracts title and text
func (a *ArticleResolver) Fetch(ctx context.Context, url string) (*Article, error) {
	var lastErr error
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		article, err := a.fetchOnce(ctx, url)
		if err == nil {
			return article, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("article fetch failed", "url", url, "attempt", attempt, "error", err)
		if attempt < a.maxRetries {
			a.pacer.Wait(ctx, ArticleRetryDelay)
		}
	}
	return nil, fmt.Errorf("fetching article %s after %d attempts: %w", url, a.maxRetries, lastErr)
}

func (a *ArticleResolver) fetchOnce(ctx context.Context, url string) (*Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return ExtractArticle(resp.Body)
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Connection", "keep-alive")
}

// ExtractArticle parses HTML and returns the page title and the article text
func ExtractArticle(r io.Reader) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	article := &Article{Title: strings.TrimSpace(doc.Find("title").First().Text())}
	if article.Title == "" {
		article.Title, _ = doc.Find(`meta[property="og:title"]`).First().Attr("content")
	}

	var body *goquery.Selection
	for _, selector := range articleSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			body = sel
			break
		}
	}
	if body == nil {
		article.Text = NoArticleContainer
		return article, nil
	}

	var paragraphs []string
	body.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		article.Text = NoArticleText
		return article, nil
	}

	article.Text = strings.Join(paragraphs, "\n")
	return article, nil
}
