package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/evanschultz/todo/internal/domain"
)

// DefaultMarkdownStyle is the glamour style used when none is requested.
const DefaultMarkdownStyle = "auto"

// MarkdownRenderer renders markdown for terminal output and recreates the renderer when wrap width changes.
type MarkdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer returns a renderer using the named glamour style.
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	style = strings.TrimSpace(style)
	if style == "" {
		style = DefaultMarkdownStyle
	}
	return &MarkdownRenderer{style: style}
}

// Render converts markdown input into ANSI-styled terminal text with the requested wrap width.
// Renderer failures fall back to the raw markdown.
func (r *MarkdownRenderer) Render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := width
	if wrapWidth < 24 {
		wrapWidth = 24
	}

	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

// ChecklistMarkdown formats tasks as a GitHub-style task list under title.
func ChecklistMarkdown(title string, tasks []domain.Task) string {
	var b strings.Builder
	if title = strings.TrimSpace(title); title != "" {
		b.WriteString("# " + title + "\n\n")
	}
	if len(tasks) == 0 {
		b.WriteString("_no todos_\n")
		return b.String()
	}
	for _, task := range tasks {
		box := "[ ]"
		if task.Done {
			box = "[x]"
		}
		b.WriteString("- " + box + " " + escapeMarkdownLine(task.Text) + "\n")
	}
	return b.String()
}

// escapeMarkdownLine keeps task text from opening block structure.
func escapeMarkdownLine(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	replacer := strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "#", `\#`)
	return replacer.Replace(text)
}
