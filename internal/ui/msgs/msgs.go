package msgs

import "time"

// AppMode represents the current input mode.
type AppMode int

const (
	ModeNormal AppMode = iota
	ModeFilter
	ModeHelp
)

func (m AppMode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeFilter:
		return "FILTER"
	case ModeHelp:
		return "HELP"
	default:
		return "UNKNOWN"
	}
}

// SetModeMsg changes the app mode.
type SetModeMsg struct {
	Mode AppMode
}

// StatusMsg sets a temporary status bar message.
type StatusMsg struct {
	Text     string
	Duration time.Duration
}

// ToastMsg shows a toast notification.
type ToastMsg struct {
	Text     string
	Duration time.Duration
	IsError  bool
}

// FilterChangedMsg carries the current filter query. An empty query shows
// every record.
type FilterChangedMsg struct {
	Query string
}

// CopyAsCurlMsg copies the selected record as a curl command.
type CopyAsCurlMsg struct{}

// SaveHARMsg writes the current log as a HAR file.
type SaveHARMsg struct{}

// HARSavedMsg reports the outcome of SaveHARMsg.
type HARSavedMsg struct {
	Path  string
	Count int
	Err   error
}
