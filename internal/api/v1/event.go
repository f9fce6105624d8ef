package v1

import (
	"fmt"
	"time"
)

// EventType identifies the variant of a file-I/O event.
type EventType string

const (
	EventRead         EventType = "read"
	EventWrite        EventType = "write"
	EventTruncate     EventType = "truncate"
	EventFileAccessed EventType = "file_accessed"
	EventFileRemoval  EventType = "file_removal"
)

// SubscriptionType returns the subscription variant that receives events of this type.
// Truncate travels on the write stream: it is a write that only changes the file size.
func (t EventType) SubscriptionType() (SubscriptionType, bool) {
	switch t {
	case EventRead:
		return SubscriptionRead, true
	case EventWrite, EventTruncate:
		return SubscriptionWrite, true
	case EventFileAccessed:
		return SubscriptionFileAccessed, true
	case EventFileRemoval:
		return SubscriptionFileRemoval, true
	default:
		return "", false
	}
}

// ParseEventType converts the external name of an event type.
func ParseEventType(s string) (EventType, error) {
	switch t := EventType(s); t {
	case EventRead, EventWrite, EventTruncate, EventFileAccessed, EventFileRemoval:
		return t, nil
	default:
		return "", fmt.Errorf("unknown event type %q", s)
	}
}

// Block is a contiguous byte range of a file touched by read or write events.
type Block struct {
	Offset int64 `json:"offset"`
	Size   int64 `json:"size"`
}

// End returns the offset one past the last byte of the block.
func (b Block) End() int64 {
	return b.Offset + b.Size
}

// Event is a single file-I/O event or, after aggregation, the merge of several
// events for the same file.
//
// Events are immutable once emitted and are compared by content.
type Event struct {
	Type     EventType `json:"type"`
	FileUUID string    `json:"file_uuid"`

	// Offset and Size describe the byte range of a single read or write.
	// Size is the value accumulated against size thresholds.
	Offset int64 `json:"offset,omitempty"`
	Size   int64 `json:"size"`

	// FileSize is set by writes that extend the file and by truncates.
	FileSize *int64 `json:"file_size,omitempty"`

	// OpenCount and ReleaseCount are only used by file accessed events.
	OpenCount    int64 `json:"open_count,omitempty"`
	ReleaseCount int64 `json:"release_count,omitempty"`

	// Counter is the number of raw events merged into this one; 0 for a raw event.
	Counter int64 `json:"counter,omitempty"`

	// Blocks is the union of byte ranges touched by merged events.
	Blocks []Block `json:"blocks,omitempty"`

	// EmittedAt is the client-side time the event was produced. It is not part
	// of the wire message.
	EmittedAt time.Time `json:"emitted_at"`
}

// NewReadEvent constructs a read event.
func NewReadEvent(fileUUID string, offset, size int64) Event {
	return Event{Type: EventRead, FileUUID: fileUUID, Offset: offset, Size: size}
}

// NewWriteEvent constructs a write event. fileSize is the file size after the write.
func NewWriteEvent(fileUUID string, offset, size, fileSize int64) Event {
	return Event{Type: EventWrite, FileUUID: fileUUID, Offset: offset, Size: size, FileSize: &fileSize}
}

// NewTruncateEvent constructs a truncate event.
func NewTruncateEvent(fileUUID string, fileSize int64) Event {
	return Event{Type: EventTruncate, FileUUID: fileUUID, FileSize: &fileSize}
}

// NewFileOpenedEvent constructs a file accessed event recording one open.
func NewFileOpenedEvent(fileUUID string) Event {
	return Event{Type: EventFileAccessed, FileUUID: fileUUID, OpenCount: 1}
}

// NewFileReleasedEvent constructs a file accessed event recording one release.
func NewFileReleasedEvent(fileUUID string) Event {
	return Event{Type: EventFileAccessed, FileUUID: fileUUID, ReleaseCount: 1}
}

// NewFileRemovalEvent constructs a file removal event.
func NewFileRemovalEvent(fileUUID string) Event {
	return Event{Type: EventFileRemoval, FileUUID: fileUUID}
}

// Validate ensures the event is well formed for its type.
func (e *Event) Validate() error {
	if _, ok := e.Type.SubscriptionType(); !ok {
		return fmt.Errorf("unknown event type %q", e.Type)
	}

	if e.FileUUID == "" {
		return fmt.Errorf("file_uuid is required")
	}

	if e.Offset < 0 {
		return fmt.Errorf("offset must be >= 0")
	}

	if e.Size < 0 {
		return fmt.Errorf("size must be >= 0")
	}

	if e.FileSize != nil && *e.FileSize < 0 {
		return fmt.Errorf("file_size must be >= 0")
	}

	if e.Type == EventTruncate && e.FileSize == nil {
		return fmt.Errorf("file_size is required for truncate events")
	}

	if e.OpenCount < 0 || e.ReleaseCount < 0 {
		return fmt.Errorf("open_count and release_count must be >= 0")
	}

	return nil
}
