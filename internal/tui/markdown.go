package tui

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownCache memoizes rendered task descriptions keyed by task id and
// a content hash, so scrolling does not re-run glamour.
type MarkdownCache struct {
	mu      sync.Mutex
	entries map[string]markdownEntry
}

type markdownEntry struct {
	hash     string
	rendered string
}

func NewMarkdownCache() *MarkdownCache {
	return &MarkdownCache{entries: make(map[string]markdownEntry)}
}

func (c *MarkdownCache) Get(id, hash string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok || entry.hash != hash {
		return "", false
	}
	return entry.rendered, true
}

func (c *MarkdownCache) Set(id, hash, rendered string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = markdownEntry{hash: hash, rendered: rendered}
}

// renderMarkdown renders markdown for terminal display. On renderer
// failure the raw text is returned unchanged.
func renderMarkdown(markdown string, width int) string {
	if width <= 0 {
		width = 80
	}
	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return markdown
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
