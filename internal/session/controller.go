package session

import (
	"context"
	"errors"
	"slices"
	"unicode"

	"github.com/evanschultz/todo/internal/app"
	"github.com/evanschultz/todo/internal/domain"
)

// Store is the task list surface the controller mutates.
type Store interface {
	Tasks() []domain.Task
	Add(context.Context, string) (domain.Task, error)
	Toggle(context.Context, string) (domain.Task, error)
	Remove(context.Context, string) error
	Dirty() bool
}

// Logger receives structured controller events.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// noSelection marks an empty list.
const noSelection = -1

// Controller interprets input events against the session state and the store.
type Controller struct {
	store  Store
	logger Logger

	mode     Mode
	selected int
	draft    []rune

	status      string
	statusLevel StatusLevel
}

// Option configures a controller.
type Option func(*Controller)

// WithLogger routes controller events to logger.
func WithLogger(logger Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStatus seeds the status line, e.g. with a startup warning.
func WithStatus(level StatusLevel, status string) Option {
	return func(c *Controller) {
		c.status = status
		c.statusLevel = level
	}
}

// New returns a controller in normal mode with the first task selected.
func New(store Store, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		logger:   discardLogger{},
		mode:     ModeNormal,
		selected: noSelection,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.clampSelection()
	return c
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Selected returns the selected index, or -1 when the list is empty.
func (c *Controller) Selected() int {
	return c.selected
}

// Draft returns the in-progress insert text.
func (c *Controller) Draft() string {
	return string(c.draft)
}

// Handle applies one event and reports whether the session should end.
func (c *Controller) Handle(ctx context.Context, ev Event) (quit bool) {
	c.clampSelection()
	switch c.mode {
	case ModeInserting:
		c.handleInserting(ctx, ev)
	default:
		quit = c.handleNormal(ctx, ev)
	}
	c.clampSelection()
	return quit
}

// handleNormal handles navigation and list commands.
func (c *Controller) handleNormal(ctx context.Context, ev Event) bool {
	n := len(c.store.Tasks())
	switch ev.Kind {
	case EventMoveUp:
		if n == 0 {
			return false
		}
		c.selected = max(c.selected-1, 0)
	case EventMoveDown:
		if n == 0 {
			return false
		}
		c.selected = min(c.selected+1, n-1)
	case EventToggle:
		task, ok := c.selectedTask()
		if !ok {
			return false
		}
		_, err := c.store.Toggle(ctx, task.ID)
		c.report(ev.Kind, err)
	case EventDelete:
		task, ok := c.selectedTask()
		if !ok {
			return false
		}
		err := c.store.Remove(ctx, task.ID)
		c.report(ev.Kind, err)
	case EventBeginInsert:
		c.mode = ModeInserting
		c.draft = c.draft[:0]
	case EventQuit:
		return true
	default:
		c.logger.Debug("event ignored", "mode", c.mode, "event", ev.Kind)
	}
	return false
}

// handleInserting handles draft editing.
func (c *Controller) handleInserting(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventChar:
		if ev.Char == 0 || unicode.IsControl(ev.Char) {
			return
		}
		c.draft = append(c.draft, ev.Char)
	case EventBackspace:
		if len(c.draft) > 0 {
			c.draft = c.draft[:len(c.draft)-1]
		}
	case EventConfirm:
		text := string(c.draft)
		c.draft = c.draft[:0]
		c.mode = ModeNormal
		task, err := c.store.Add(ctx, text)
		if err == nil || errors.Is(err, app.ErrStorageIO) {
			c.selectID(task.ID)
		}
		c.report(ev.Kind, err)
	case EventCancel:
		c.draft = c.draft[:0]
		c.mode = ModeNormal
	default:
		c.logger.Debug("event ignored", "mode", c.mode, "event", ev.Kind)
	}
}

// report turns a store result into status-line state.
func (c *Controller) report(kind EventKind, err error) {
	switch {
	case err == nil:
		if c.statusLevel == StatusError {
			c.setStatus(StatusInfo, "saved")
			return
		}
		c.setStatus(StatusInfo, "")
	case errors.Is(err, app.ErrEmptyInput), errors.Is(err, app.ErrNotFound):
		c.logger.Debug("store mutation skipped", "event", kind, "err", err)
	case errors.Is(err, app.ErrStorageIO):
		c.logger.Error("store flush failed", "event", kind, "err", err)
		c.setStatus(StatusError, "not saved: "+err.Error())
	default:
		c.logger.Warn("store mutation failed", "event", kind, "err", err)
		c.setStatus(StatusError, err.Error())
	}
}

func (c *Controller) setStatus(level StatusLevel, status string) {
	c.statusLevel = level
	c.status = status
}

// selectedTask returns the task under the cursor.
func (c *Controller) selectedTask() (domain.Task, bool) {
	tasks := c.store.Tasks()
	if c.selected < 0 || c.selected >= len(tasks) {
		return domain.Task{}, false
	}
	return tasks[c.selected], true
}

// selectID moves the cursor onto the task with id, when present.
func (c *Controller) selectID(id string) {
	if id == "" {
		return
	}
	idx := slices.IndexFunc(c.store.Tasks(), func(t domain.Task) bool {
		return t.ID == id
	})
	if idx >= 0 {
		c.selected = idx
	}
}

// clampSelection keeps the cursor inside the list, or at -1 when it is empty.
func (c *Controller) clampSelection() {
	n := len(c.store.Tasks())
	if n == 0 {
		c.selected = noSelection
		return
	}
	c.selected = clamp(c.selected, 0, n-1)
}

// View returns the view model for the current state.
func (c *Controller) View() ViewModel {
	tasks := c.store.Tasks()
	rows := make([]TaskView, 0, len(tasks))
	for idx, task := range tasks {
		rows = append(rows, TaskView{
			Text:     task.Text,
			Done:     task.Done,
			Selected: idx == c.selected,
		})
	}
	draft := ""
	if c.mode == ModeInserting {
		draft = string(c.draft)
	}
	return ViewModel{
		Tasks:       rows,
		Selected:    c.selected,
		Mode:        c.mode,
		Draft:       draft,
		Status:      c.status,
		StatusLevel: c.statusLevel,
		Unsaved:     c.store.Dirty(),
	}
}

// clamp returns v bounded to [minV, maxV].
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
func (discardLogger) Error(string, ...any) {}

// Source yields input events one at a time. ok is false once input is exhausted.
type Source interface {
	Next(context.Context) (ev Event, ok bool)
}

// SliceSource replays a fixed event sequence.
type SliceSource struct {
	events []Event
}

// NewSliceSource returns a source over events.
func NewSliceSource(events ...Event) *SliceSource {
	return &SliceSource{events: events}
}

// Next pops the next queued event.
func (s *SliceSource) Next(context.Context) (Event, bool) {
	if len(s.events) == 0 {
		return Event{}, false
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, true
}

// Run pulls events from src until quit, exhaustion, or cancellation.
// render, when set, receives the view after every transition.
func (c *Controller) Run(ctx context.Context, src Source, render func(ViewModel)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, ok := src.Next(ctx)
		if !ok {
			return nil
		}
		quit := c.Handle(ctx, ev)
		if render != nil {
			render(c.View())
		}
		if quit {
			return nil
		}
	}
}
