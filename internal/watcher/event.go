package watcher

import "time"

// EventType represents the kind of change seen on the watched export.
type EventType int

const (
	// EventAdded is emitted when the export appears after being absent.
	EventAdded EventType = iota
	// EventModified is emitted when the export (or its journal) changed and settled.
	EventModified
	// EventRemoved is emitted when the export is gone.
	EventRemoved
)

// String returns the string representation of the event type
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event describes one settled change to the export file.
type Event struct {
	Type EventType

	// Path is the export file, never a journal sibling.
	Path string

	Size    int64
	ModTime time.Time
}
