package session

// Mode is the interaction state of a session.
type Mode int

// ModeNormal and related constants define package defaults.
const (
	ModeNormal Mode = iota
	ModeInserting
)

// String returns a lowercase label for the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeInserting:
		return "inserting"
	default:
		return "unknown"
	}
}

// EventKind identifies one abstract input event.
type EventKind int

// EventMoveUp and related constants enumerate the input events a controller understands.
const (
	EventNone EventKind = iota
	EventMoveUp
	EventMoveDown
	EventToggle
	EventDelete
	EventBeginInsert
	EventQuit
	EventChar
	EventBackspace
	EventConfirm
	EventCancel
)

var eventKindNames = map[EventKind]string{
	EventNone:        "none",
	EventMoveUp:      "move-up",
	EventMoveDown:    "move-down",
	EventToggle:      "toggle",
	EventDelete:      "delete",
	EventBeginInsert: "begin-insert",
	EventQuit:        "quit",
	EventChar:        "char",
	EventBackspace:   "backspace",
	EventConfirm:     "confirm",
	EventCancel:      "cancel",
}

// String returns the event name used in logs.
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one abstract input event. Char is only meaningful for EventChar.
type Event struct {
	Kind EventKind
	Char rune
}

// On builds a non-character event.
func On(kind EventKind) Event {
	return Event{Kind: kind}
}

// Char builds a character input event.
func Char(r rune) Event {
	return Event{Kind: EventChar, Char: r}
}

// Chars builds one character event per rune of s.
func Chars(s string) []Event {
	out := make([]Event, 0, len(s))
	for _, r := range s {
		out = append(out, Char(r))
	}
	return out
}
