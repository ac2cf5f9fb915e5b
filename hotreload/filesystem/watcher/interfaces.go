package watcher

import (
	"context"
	"fmt"
)

// EventType is the kind of change detected for a path between two scans
type EventType int

const (
	// EventCreate represents a file seen for the first time
	EventCreate EventType = iota
	// EventWrite represents a file whose modification label changed
	EventWrite
	// EventRemove represents a tracked file missing from the latest scan
	EventRemove
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "Created"
	case EventWrite:
		return "Modified"
	case EventRemove:
		return "Deleted"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// MarshalText renders the event type by name in HOTRELOAD_CHANGES
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Change is one detected difference between two scans
type Change struct {
	Path string    `json:"path"`
	Type EventType `json:"status"`
}

// Fingerprint is the observed state of one file: its path and an opaque
// modification label compared for equality across scans
type Fingerprint struct {
	Path  string
	Label string
}

// Fingerprinter computes the current fingerprint of a file
type Fingerprinter interface {
	Fingerprint(path string) (Fingerprint, error)
}

// Scanner lists every regular file under a root path
type Scanner interface {
	ListFiles(ctx context.Context, root string) ([]string, error)
}

// Reporter receives the outcome of every trigger
type Reporter interface {
	Report(trigger Trigger)
}

// ReporterFunc adapts a function to the Reporter interface
type ReporterFunc func(trigger Trigger)

// Report calls f(trigger)
func (f ReporterFunc) Report(trigger Trigger) {
	f(trigger)
}
