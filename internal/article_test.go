package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractArticle(t *testing.T) {
	html := `<html><head><title> Daily News </title></head><body>
		<nav><p>menu</p></nav>
		<article><h1>Heading</h1><p>First paragraph.</p><p>  </p><p>Second paragraph.</p></article>
		<main><p>ignored</p></main>
	</body></html>`

	article, err := ExtractArticle(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, "Daily News", article.Title)
	assert.Equal(t, "First paragraph.\nSecond paragraph.", article.Text)
}

func TestExtractArticleSelectorOrder(t *testing.T) {
	html := `<html><body><div id="content"><p>from id</p></div><div class="entry-content"><p>from class</p></div></body></html>`
	article, err := ExtractArticle(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, "from class", article.Text)
}

func TestExtractArticleFallbacks(t *testing.T) {
	article, err := ExtractArticle(strings.NewReader(`<html><body><div><p>loose text</p></div></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, NoArticleContainer, article.Text)

	article, err = ExtractArticle(strings.NewReader(`<html><head><meta property="og:title" content="OG"></head><body><main><div>no paragraphs</div></main></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, NoArticleText, article.Text)
	assert.Equal(t, "OG", article.Title)
}

func TestArticleResolverRetriesAndSetsHeaders(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Accept-Language"), "zh-TW")
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`<html><body><article><p>body text</p></article></body></html>`))
	}))
	defer server.Close()

	resolver := NewArticleResolver(server.Client(), 3, NoopPacer{}, testLogger())
	text, err := resolver.Resolve(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "body text", text)
	assert.EqualValues(t, 2, hits.Load())
}

func TestArticleResolverGivesUp(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	resolver := NewArticleResolver(server.Client(), 2, NoopPacer{}, testLogger())
	_, err := resolver.Resolve(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.EqualValues(t, 2, hits.Load())
}
