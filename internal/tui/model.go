package tui

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/evanschultz/todo/internal/session"
)

// Model renders a session controller and feeds it key events.
type Model struct {
	ctx    context.Context
	ctrl   *session.Controller
	keys   keyMap
	help   help.Model
	logger Logger

	copyText ClipboardWriter
	showHelp bool
	title    string

	ready  bool
	width  int
	height int

	// notice holds TUI-only feedback such as clipboard results.
	notice string
}

// NewModel constructs a new value for this package.
func NewModel(ctrl *session.Controller, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		ctx:      context.Background(),
		ctrl:     ctrl,
		keys:     newKeyMap(),
		help:     h,
		logger:   discardLogger{},
		copyText: systemClipboard,
		showHelp: true,
		title:    "todo",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		m.notice = ""
		if key.Matches(msg, m.keys.forceQuit) {
			return m, tea.Quit
		}
		if m.ctrl.Mode() == session.ModeInserting {
			return m.handleInsertKey(msg)
		}
		return m.handleNormalKey(msg)

	case tea.PasteMsg:
		if m.ctrl.Mode() != session.ModeInserting {
			return m, nil
		}
		for _, ev := range session.Chars(msg.Content) {
			m.ctrl.Handle(m.ctx, ev)
		}
		return m, nil

	default:
		return m, nil
	}
}

// handleNormalKey maps navigation keys to session events.
func (m Model) handleNormalKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	var kind session.EventKind
	switch {
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.yank):
		m.yankSelected()
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		kind = session.EventMoveUp
	case key.Matches(msg, m.keys.moveDown):
		kind = session.EventMoveDown
	case key.Matches(msg, m.keys.toggle):
		kind = session.EventToggle
	case key.Matches(msg, m.keys.add):
		kind = session.EventBeginInsert
	case key.Matches(msg, m.keys.delete):
		kind = session.EventDelete
	case key.Matches(msg, m.keys.quit):
		kind = session.EventQuit
	default:
		return m, nil
	}
	if m.ctrl.Handle(m.ctx, session.On(kind)) {
		return m, tea.Quit
	}
	return m, nil
}

// handleInsertKey maps draft editing keys to session events.
func (m Model) handleInsertKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.confirm) || msg.Code == tea.KeyEnter:
		m.ctrl.Handle(m.ctx, session.On(session.EventConfirm))
	case key.Matches(msg, m.keys.cancel):
		m.ctrl.Handle(m.ctx, session.On(session.EventCancel))
	case key.Matches(msg, m.keys.backspace):
		m.ctrl.Handle(m.ctx, session.On(session.EventBackspace))
	default:
		if msg.Text == "" || msg.Mod&(tea.ModCtrl|tea.ModAlt) != 0 {
			return m, nil
		}
		for _, ev := range session.Chars(msg.Text) {
			m.ctrl.Handle(m.ctx, ev)
		}
	}
	return m, nil
}

// yankSelected copies the selected task text to the clipboard.
func (m *Model) yankSelected() {
	text, ok := m.ctrl.View().SelectedText()
	if !ok {
		m.notice = "nothing to copy"
		return
	}
	if err := m.copyText(text); err != nil {
		m.logger.Warn("clipboard write failed", "err", err)
		m.notice = "clipboard unavailable: " + err.Error()
		return
	}
	m.notice = "copied: " + truncate(text, 40)
}

// View handles view.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render builds the full screen content.
func (m Model) render() string {
	vm := m.ctrl.View()

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render(m.title)
	header += statusStyle.Render("  [" + vm.Mode.String() + "]")
	if n := len(vm.Tasks); n > 0 {
		header += statusStyle.Render(fmt.Sprintf("  %d/%d done", vm.CompletedCount(), n))
	}
	if vm.Unsaved {
		header += lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")).Render("  ● unsaved")
	}

	footer := m.renderFooter(vm, muted, dim)
	listHeight := 0
	if m.height > 0 {
		listHeight = max(1, m.height-lipgloss.Height(header)-lipgloss.Height(footer)-1)
	}
	body := m.renderTasks(vm, accent, muted, listHeight)

	content := strings.Join([]string{header, body, footer}, "\n")
	if m.height > 0 {
		content = fitLines(content, m.height)
	}
	return content
}

// renderTasks renders the visible window of task rows.
func (m Model) renderTasks(vm session.ViewModel, accent, muted color.Color, height int) string {
	if len(vm.Tasks) == 0 {
		empty := lipgloss.NewStyle().Foreground(muted).Italic(true)
		return empty.Render(fmt.Sprintf("no todos yet • press %s to add one", m.keys.add.Help().Key))
	}

	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	doneStyle := lipgloss.NewStyle().Foreground(muted).Strikethrough(true).Faint(true)
	checkStyle := lipgloss.NewStyle().Foreground(accent)

	textWidth := 0
	if m.width > 0 {
		textWidth = max(1, m.width-6)
	}
	start, end := 0, len(vm.Tasks)
	if height > 0 {
		start, end = windowBounds(len(vm.Tasks), vm.Selected, height)
	}

	lines := make([]string, 0, end-start)
	for _, task := range vm.Tasks[start:end] {
		text := task.Text
		if textWidth > 0 {
			text = truncate(text, textWidth)
		}
		box := "[ ]"
		if task.Done {
			box = checkStyle.Render("[x]")
			text = doneStyle.Render(text)
		}
		prefix := "  "
		if task.Selected {
			prefix = selectedStyle.Render("► ")
			if !task.Done {
				text = selectedStyle.Render(text)
			}
		}
		lines = append(lines, prefix+box+" "+text)
	}
	return strings.Join(lines, "\n")
}

// renderFooter renders the input box, status lines and help bar.
func (m Model) renderFooter(vm session.ViewModel, muted, dim color.Color) string {
	sections := make([]string, 0, 4)
	if vm.Mode == session.ModeInserting {
		inputStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("220")).
			Padding(0, 1)
		if m.width > 0 {
			inputStyle = inputStyle.Width(max(20, m.width-2))
		}
		prompt := lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Render("new todo: ")
		sections = append(sections, inputStyle.Render(prompt+vm.Draft+"█"))
	}
	if status := strings.TrimSpace(vm.Status); status != "" {
		sections = append(sections, statusLineStyle(vm.StatusLevel, dim).Render(status))
	}
	if m.notice != "" {
		sections = append(sections, lipgloss.NewStyle().Foreground(muted).Render(m.notice))
	}
	if m.showHelp || m.help.ShowAll {
		keys := m.keys
		keys.inserting = vm.Mode == session.ModeInserting
		hb := m.help
		hb.SetWidth(max(0, m.width-2))
		helpLine := lipgloss.NewStyle().
			Foreground(muted).
			BorderTop(true).
			BorderForeground(dim).
			Padding(0, 1)
		if m.width > 0 {
			helpLine = helpLine.Width(m.width)
		}
		sections = append(sections, helpLine.Render(hb.View(keys)))
	}
	return strings.Join(sections, "\n")
}

func statusLineStyle(level session.StatusLevel, dim color.Color) lipgloss.Style {
	switch level {
	case session.StatusError:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	case session.StatusWarn:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	default:
		return lipgloss.NewStyle().Foreground(dim)
	}
}

// windowBounds returns an inclusive-exclusive list window that keeps selected visible.
func windowBounds(total, selected, windowSize int) (int, int) {
	if total <= 0 || windowSize <= 0 {
		return 0, 0
	}
	if total <= windowSize {
		return 0, total
	}
	selected = clamp(selected, 0, total-1)
	half := windowSize / 2
	start := selected - half
	if start < 0 {
		start = 0
	}
	end := start + windowSize
	if end > total {
		end = total
		start = max(0, end-windowSize)
	}
	return start, end
}

// fitLines fits content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// truncate shortens s to width cells with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Warn(string, ...any)  {}
