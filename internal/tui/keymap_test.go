package tui

import (
	"testing"

	"charm.land/bubbles/v2/key"
)

// TestParseBindingKeys verifies key parsing behavior for configured overrides.
func TestParseBindingKeys(t *testing.T) {
	t.Run("space aliases", func(t *testing.T) {
		keys, help := parseBindingKeys("space", "x")
		if len(keys) != 2 || keys[0] != " " || keys[1] != "space" {
			t.Fatalf("unexpected parsed space keys %#v", keys)
		}
		if help != "space" {
			t.Fatalf("unexpected space help text %q", help)
		}
	})

	t.Run("uppercase rune includes shift alias", func(t *testing.T) {
		keys, help := parseBindingKeys("D", "d")
		if len(keys) != 2 || keys[0] != "D" || keys[1] != "shift+d" {
			t.Fatalf("unexpected uppercase parsed keys %#v", keys)
		}
		if help != "D" {
			t.Fatalf("unexpected uppercase help text %q", help)
		}
	})

	t.Run("multi rune lowercases key matcher", func(t *testing.T) {
		keys, help := parseBindingKeys("Ctrl+D", "d")
		if len(keys) != 1 || keys[0] != "ctrl+d" {
			t.Fatalf("unexpected multi-rune parsed keys %#v", keys)
		}
		if help != "Ctrl+D" {
			t.Fatalf("unexpected multi-rune help text %q", help)
		}
	})

	t.Run("blank uses fallback", func(t *testing.T) {
		keys, help := parseBindingKeys("  ", "x")
		if len(keys) != 1 || keys[0] != "x" {
			t.Fatalf("unexpected fallback parsed keys %#v", keys)
		}
		if help != "x" {
			t.Fatalf("unexpected fallback help text %q", help)
		}
	})
}

// TestConfigureBinding verifies binding override application behavior.
func TestConfigureBinding(t *testing.T) {
	b := key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "old"))
	configureBinding(&b, "i", "a", "add")
	keys := b.Keys()
	if len(keys) != 1 || keys[0] != "i" {
		t.Fatalf("unexpected configured keys %#v", keys)
	}
	if b.Help().Key != "i" || b.Help().Desc != "add" {
		t.Fatalf("unexpected configured help %#v", b.Help())
	}
}

// TestKeyMapApplyConfig verifies dynamic key map override behavior.
func TestKeyMapApplyConfig(t *testing.T) {
	k := newKeyMap()
	k.applyConfig(KeyConfig{
		MoveUp:   "p",
		MoveDown: "n",
		Toggle:   "x",
		Add:      "i",
		Delete:   "X",
		Quit:     "ctrl+q",
		Yank:     "",
	})

	assertKeys := func(name string, binding key.Binding, expected ...string) {
		t.Helper()
		got := binding.Keys()
		if len(got) != len(expected) {
			t.Fatalf("%s key count mismatch got=%#v expected=%#v", name, got, expected)
		}
		for i := range expected {
			if got[i] != expected[i] {
				t.Fatalf("%s key mismatch got=%#v expected=%#v", name, got, expected)
			}
		}
	}

	assertKeys("move up", k.moveUp, "p", "up")
	assertKeys("move down", k.moveDown, "n", "down")
	assertKeys("toggle", k.toggle, "x")
	assertKeys("add", k.add, "i")
	assertKeys("delete", k.delete, "X", "shift+x")
	assertKeys("quit", k.quit, "ctrl+q")
	assertKeys("yank", k.yank, "y")
	if got := k.moveUp.Help().Key; got != "p/↑" {
		t.Fatalf("unexpected move up help %q", got)
	}
}

// TestKeyMapHelpFollowsMode verifies insert mode swaps the help bindings.
func TestKeyMapHelpFollowsMode(t *testing.T) {
	k := newKeyMap()
	if got := k.ShortHelp(); len(got) != 7 {
		t.Fatalf("expected 7 normal bindings, got %d", len(got))
	}
	k.inserting = true
	short := k.ShortHelp()
	if len(short) != 3 || short[0].Help().Key != "enter" {
		t.Fatalf("unexpected insert help %#v", short)
	}
}

// TestKeyMapApplyZeroConfigMatchesDefaults verifies an empty config rebinds to the stock keys.
func TestKeyMapApplyZeroConfigMatchesDefaults(t *testing.T) {
	k := newKeyMap()
	k.applyConfig(KeyConfig{})
	def := DefaultKeyConfig()

	cases := []struct {
		name    string
		binding key.Binding
		want    string
	}{
		{name: "move up", binding: k.moveUp, want: def.MoveUp},
		{name: "move down", binding: k.moveDown, want: def.MoveDown},
		{name: "add", binding: k.add, want: def.Add},
		{name: "delete", binding: k.delete, want: def.Delete},
		{name: "quit", binding: k.quit, want: def.Quit},
		{name: "yank", binding: k.yank, want: def.Yank},
	}
	for _, tc := range cases {
		if got := tc.binding.Keys(); len(got) == 0 || got[0] != tc.want {
			t.Fatalf("%s keys = %#v, want first key %q", tc.name, got, tc.want)
		}
	}
	if got := k.toggle.Keys(); len(got) != 2 || got[0] != " " || got[1] != "space" {
		t.Fatalf("toggle keys = %#v, want space aliases", got)
	}
}
