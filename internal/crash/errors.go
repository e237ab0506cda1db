package crash

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInputRead   = errors.New("input read")
	ErrInputSchema = errors.New("input schema")
	ErrOutputWrite = errors.New("output write")
)

// InputReadError reports a missing, unreadable or malformed source file.
type InputReadError struct {
	Path string
	Line int // 0 when the failure is not tied to a line
	Err  error
}

func (e *InputReadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("read %s (line %d): %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *InputReadError) Unwrap() error { return e.Err }

func (e *InputReadError) Is(target error) bool { return target == ErrInputRead }

// InputSchemaError reports required columns absent from the source header.
type InputSchemaError struct {
	Path    string
	Missing []string
}

func (e *InputSchemaError) Error() string {
	where := ""
	if e.Path != "" {
		where = " in " + e.Path
	}
	return fmt.Sprintf("missing required column(s)%s: %s", where, strings.Join(e.Missing, ", "))
}

func (e *InputSchemaError) Is(target error) bool { return target == ErrInputSchema }

// OutputWriteError reports a destination that could not be written.
// Outputs written before the failure are left in place.
type OutputWriteError struct {
	Target string
	Err    error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Target, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }

func (e *OutputWriteError) Is(target error) bool { return target == ErrOutputWrite }

// DuplicatePersonError is returned when two input rows share an ID and the
// duplicate-person policy is "fail".
type DuplicatePersonError struct {
	IDs []string
}

func (e *DuplicatePersonError) Error() string {
	const show = 5
	ids := e.IDs
	more := ""
	if len(ids) > show {
		more = fmt.Sprintf(" (+%d more)", len(ids)-show)
		ids = ids[:show]
	}
	return fmt.Sprintf("duplicate person id(s): %s%s", strings.Join(ids, ", "), more)
}
