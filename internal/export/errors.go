package export

import "fmt"

// Error is a fatal export failure tagged with the stage it happened in and,
// when segment-specific, the 1-based segment number. Fatal failures discard
// the whole run; there is no partial output.
type Error struct {
	Stage   Stage
	Segment int
	Err     error
}

func (e *Error) Error() string {
	if e.Segment > 0 {
		return fmt.Sprintf("export %s, segment %d: %v", e.Stage, e.Segment, e.Err)
	}
	return fmt.Sprintf("export %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
