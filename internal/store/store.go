package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrLastProject = errors.New("cannot delete the last remaining project")
	ErrEmptyName   = errors.New("project name cannot be empty")
)

// PersistenceError reports a failed read or write of a project file.
type PersistenceError struct {
	Op      string // "load" or "save"
	Path    string
	Wrapped error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Wrapped)
}

func (e *PersistenceError) Unwrap() error {
	return e.Wrapped
}
