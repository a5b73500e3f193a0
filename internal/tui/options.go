package tui

import (
	"context"

	"github.com/atotto/clipboard"
)

// KeyConfig holds the configurable normal-mode keys.
type KeyConfig struct {
	MoveUp   string
	MoveDown string
	Toggle   string
	Add      string
	Delete   string
	Quit     string
	Yank     string
}

// ClipboardWriter copies text to the system clipboard.
type ClipboardWriter func(string) error

// Logger receives model diagnostics.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
}

type Option func(*Model)

// DefaultKeyConfig returns the stock normal-mode keys.
func DefaultKeyConfig() KeyConfig {
	return KeyConfig{
		MoveUp:   "k",
		MoveDown: "j",
		Toggle:   "space",
		Add:      "a",
		Delete:   "d",
		Quit:     "q",
		Yank:     "y",
	}
}

// WithKeyConfig rebinds normal-mode keys; blank fields keep their defaults.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

func WithClipboard(write ClipboardWriter) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

func WithShowHelp(show bool) Option {
	return func(m *Model) {
		m.showHelp = show
	}
}

func WithLogger(logger Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithTitle(title string) Option {
	return func(m *Model) {
		if title != "" {
			m.title = title
		}
	}
}

// systemClipboard writes through the OS clipboard utilities.
func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// WithContext sets the context passed to store mutations.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}
