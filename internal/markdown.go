package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// MarkdownWriter writes one markdown artifact per processed item
type MarkdownWriter struct {
	dir string
	now func() time.Time
}

func NewMarkdownWriter(dir string) *MarkdownWriter {
	return &MarkdownWriter{dir: dir, now: time.Now}
}

// SanitizeTitle keeps letters, numbers, spaces, '-' and '_' and trims
// trailing spaces
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Path returns where an item with this title is written today
func (w *MarkdownWriter) Path(title string) string {
	name := fmt.Sprintf("%s_%s.md", w.now().Format("20060102"), SanitizeTitle(title))
	return filepath.Join(w.dir, name)
}

// Persist writes the item and returns the file path
func (w *MarkdownWriter) Persist(title, url, summary, content string) (string, error) {
	if err := EnsureDirs(w.dir); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := w.Path(title)
	if err := os.WriteFile(path, []byte(RenderItemMarkdown(title, url, summary, content)), 0644); err != nil {
		return "", fmt.Errorf("writing markdown: %w", err)
	}
	return path, nil
}

// RenderItemMarkdown renders the artifact; single newlines in summary and
// content are doubled so they survive as paragraphs
func RenderItemMarkdown(title, url, summary, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**來源網址:** [%s](%s)\n\n", url, url)
	b.WriteString("---\n\n")
	b.WriteString("## 重點摘要\n\n")
	b.WriteString(strings.ReplaceAll(summary, "\n", "\n\n"))
	b.WriteString("\n\n---\n\n")
	b.WriteString("## 全文/逐字稿\n\n")
	b.WriteString(strings.ReplaceAll(content, "\n", "\n\n"))
	return b.String()
}
