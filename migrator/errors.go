package migrator

import "fmt"

// ConfigError is returned when the Migrator can't be configured, e.g. because
// the storage adapter name is unknown.
type ConfigError struct {
	Msg string
	Err error
}

// Error returns a string representation of the error.
func (e ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e ConfigError) Unwrap() error {
	return e.Err
}

// IOError is returned when the migrations directory can't be read.
type IOError struct {
	Path string
	Err  error
}

// Error returns a string representation of the error.
func (e IOError) Error() string {
	return fmt.Sprintf("failed reading migrations directory '%s': %s", e.Path, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e IOError) Unwrap() error {
	return e.Err
}

// LoadError is returned when a migration file can't be loaded.
type LoadError struct {
	Path string
	Msg  string
	Err  error
}

// Error returns a string representation of the error.
func (e LoadError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("failed loading migration '%s': %s", e.Path, msg)
}

// Unwrap returns the underlying error for error unwrapping.
func (e LoadError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a migration ID doesn't match any discovered
// migration file.
type NotFoundError struct {
	ID string
}

// Error returns a string representation of the error.
func (e NotFoundError) Error() string {
	return fmt.Sprintf("migration '%s' doesn't exist", e.ID)
}

// ActionError is returned when the up or down action of a migration fails.
// Migrations executed before it in the same batch stay applied.
type ActionError struct {
	ID        string
	Direction Direction
	Err       error
}

// Error returns a string representation of the error.
func (e ActionError) Error() string {
	return fmt.Sprintf("failed running %s migration '%s': %s", e.Direction, e.ID, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e ActionError) Unwrap() error {
	return e.Err
}
