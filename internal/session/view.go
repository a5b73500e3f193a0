package session

// StatusLevel grades the status line.
type StatusLevel int

// StatusInfo and related constants define package defaults.
const (
	StatusInfo StatusLevel = iota
	StatusWarn
	StatusError
)

// TaskView is one rendered row. It carries no task identity.
type TaskView struct {
	Text     string
	Done     bool
	Selected bool
}

// ViewModel is everything a renderer needs after a transition.
type ViewModel struct {
	Tasks       []TaskView
	Selected    int
	Mode        Mode
	Draft       string
	Status      string
	StatusLevel StatusLevel
	Unsaved     bool
}

// SelectedText returns the text of the selected row.
func (v ViewModel) SelectedText() (string, bool) {
	if v.Selected < 0 || v.Selected >= len(v.Tasks) {
		return "", false
	}
	return v.Tasks[v.Selected].Text, true
}

// CompletedCount returns how many rows are done.
func (v ViewModel) CompletedCount() int {
	n := 0
	for _, task := range v.Tasks {
		if task.Done {
			n++
		}
	}
	return n
}
