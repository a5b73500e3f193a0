package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// keyMap represents key map data used by this package.
type keyMap struct {
	quit       key.Binding
	forceQuit  key.Binding
	toggleHelp key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	toggle     key.Binding
	add        key.Binding
	delete     key.Binding
	yank       key.Binding

	confirm   key.Binding
	cancel    key.Binding
	backspace key.Binding

	// inserting switches help output to the draft editing bindings.
	inserting bool
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		forceQuit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		toggle:     key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "toggle")),
		add:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		yank:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy text")),
		confirm:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		backspace:  key.NewBinding(key.WithKeys("backspace"), key.WithHelp("⌫", "erase")),
	}
}

// applyConfig overrides the configurable normal-mode bindings. Blank fields
// fall back to DefaultKeyConfig.
// Arrow keys stay bound to movement whatever the letter bindings are.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	def := DefaultKeyConfig()
	configureBinding(&k.moveUp, cfg.MoveUp, def.MoveUp, "up", "up")
	configureBinding(&k.moveDown, cfg.MoveDown, def.MoveDown, "down", "down")
	configureBinding(&k.toggle, cfg.Toggle, def.Toggle, "toggle")
	configureBinding(&k.add, cfg.Add, def.Add, "add")
	configureBinding(&k.delete, cfg.Delete, def.Delete, "delete")
	configureBinding(&k.quit, cfg.Quit, def.Quit, "quit")
	configureBinding(&k.yank, cfg.Yank, def.Yank, "copy text")
}

// configureBinding rebinds b from raw, falling back when raw is blank.
// An optional extra key is appended to the parsed keys.
func configureBinding(b *key.Binding, raw, fallback, desc string, extra ...string) {
	keys, helpKey := parseBindingKeys(raw, fallback)
	for _, x := range extra {
		keys = append(keys, x)
		helpKey += "/" + arrowLabel(x)
	}
	b.SetKeys(keys...)
	b.SetHelp(helpKey, desc)
}

// parseBindingKeys turns a configured key into matcher keys plus its help label.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = strings.TrimSpace(fallback)
	}
	if strings.EqualFold(raw, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + string(unicode.ToLower(r))}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

func arrowLabel(name string) string {
	switch name {
	case "up":
		return "↑"
	case "down":
		return "↓"
	default:
		return name
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	if k.inserting {
		return []key.Binding{k.confirm, k.cancel, k.backspace}
	}
	return []key.Binding{k.add, k.toggle, k.delete, k.moveUp, k.moveDown, k.toggleHelp, k.quit}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	if k.inserting {
		return [][]key.Binding{{k.confirm, k.cancel, k.backspace, k.forceQuit}}
	}
	return [][]key.Binding{
		{k.moveUp, k.moveDown},
		{k.add, k.toggle, k.delete, k.yank},
		{k.toggleHelp, k.quit, k.forceQuit},
	}
}
