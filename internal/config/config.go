package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	toml "github.com/pelletier/go-toml/v2"
)

type Backend string

const (
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
)

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
	Keys    KeyConfig     `toml:"keys"`
	UI      UIConfig      `toml:"ui"`
}

type StorageConfig struct {
	Backend Backend `toml:"backend"`
	// Path is empty until resolved; callers fill the backend default.
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type KeyConfig struct {
	MoveUp   string `toml:"move_up"`
	MoveDown string `toml:"move_down"`
	Toggle   string `toml:"toggle"`
	Add      string `toml:"add"`
	Delete   string `toml:"delete"`
	Quit     string `toml:"quit"`
	Yank     string `toml:"yank"`
}

type UIConfig struct {
	SeedTutorial bool `toml:"seed_tutorial"`
	ShowHelp     bool `toml:"show_help"`
}

var validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}

func Default(storagePath string) Config {
	return Config{
		Storage: StorageConfig{
			Backend: BackendJSON,
			Path:    storagePath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".todo/log",
			},
		},
		Keys: KeyConfig{
			MoveUp:   "k",
			MoveDown: "j",
			Toggle:   "space",
			Add:      "a",
			Delete:   "d",
			Quit:     "q",
			Yank:     "y",
		},
		UI: UIConfig{
			SeedTutorial: false,
			ShowHelp:     true,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// normalize lowercases enum-like fields so validation and callers agree.
func (c *Config) normalize() {
	c.Storage.Backend = Backend(strings.ToLower(strings.TrimSpace(string(c.Storage.Backend))))
	c.Storage.Path = strings.TrimSpace(c.Storage.Path)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.DevFile.Dir = strings.TrimSpace(c.Logging.DevFile.Dir)
}

func (c Config) Validate() error {
	switch Backend(strings.ToLower(strings.TrimSpace(string(c.Storage.Backend)))) {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("invalid storage.backend: %q", c.Storage.Backend)
	}

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level != "" && !slices.Contains(validLogLevels, level) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when dev_file is enabled")
	}

	seen := map[string]string{}
	for _, binding := range c.Keys.bindings() {
		k := normalizeKey(binding.value)
		if k == "" {
			continue
		}
		if slices.Contains(reservedKeys, k) {
			return fmt.Errorf("keys.%s: %q is reserved", binding.name, binding.value)
		}
		if prev, ok := seen[k]; ok {
			return fmt.Errorf("keys.%s duplicates keys.%s: %q", binding.name, prev, binding.value)
		}
		seen[k] = binding.name
	}

	return nil
}

// reservedKeys are bound by the UI itself: help, force quit and the arrow
// aliases of the move keys.
var reservedKeys = []string{"?", "ctrl+c", "up", "down"}

// normalizeKey matches the UI's key parsing: single runes keep their case,
// named keys compare case-insensitively.
func normalizeKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if utf8.RuneCountInString(raw) > 1 {
		return strings.ToLower(raw)
	}
	return raw
}

type namedKey struct {
	name  string
	value string
}

func (k KeyConfig) bindings() []namedKey {
	return []namedKey{
		{"move_up", k.MoveUp},
		{"move_down", k.MoveDown},
		{"toggle", k.Toggle},
		{"add", k.Add},
		{"delete", k.Delete},
		{"quit", k.Quit},
		{"yank", k.Yank},
	}
}

// WriteDefault writes cfg to path as TOML unless a file already exists there.
// It reports whether a file was created.
func WriteDefault(path string, cfg Config) (bool, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return false, errors.New("config path is required")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return false, err
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("create config: %w", err)
	}
	if _, err := f.Write(encoded); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write config: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close config: %w", err)
	}
	return true, nil
}

// EnsureConfigDir creates the parent directory of a config path.
func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
