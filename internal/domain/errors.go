package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateAnchorWeek is returned when two anchor flu rows land in the same
// Monday week, which would break the one-row-per-week key of the gold table.
var ErrDuplicateAnchorWeek = errors.New("duplicate anchor week")

// SchemaError reports an input table whose shape does not match what the
// transform expects. It is always fatal to the run.
type SchemaError struct {
	Table  string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("schema error: table %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("schema error: table %s column %s: %s", e.Table, e.Column, e.Reason)
}
