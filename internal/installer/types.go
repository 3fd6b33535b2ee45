package installer

import (
	"fmt"

	"github.com/hidakatsuya/rexer/internal/config"
)

// Action records one extension the installer acted on.
type Action struct {
	Name   string
	Kind   config.Kind
	Commit string
}

// Result holds the outcome of a reconciliation run.
type Result struct {
	Installed []Action
	Updated   []Action
	Removed   []Action
	Unchanged []Action
}

// Empty reports whether the run changed nothing.
func (r *Result) Empty() bool {
	return len(r.Installed) == 0 && len(r.Updated) == 0 && len(r.Removed) == 0
}

// NotFoundError reports an operation targeting a name that is absent
// from the lock file.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("extension '%s' not found in lock file", e.Name)
}
