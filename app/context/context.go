package context

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/ratchet/app/config"
)

// Context contains common objects used by the application. It is passed around
// the application to avoid direct dependencies on external systems, and make
// testing easier.
type Context struct {
	Ctx        context.Context // global context
	FS         vfs.FileSystem  // filesystem
	Env        Environment     // process environment
	Logger     *slog.Logger    // global logger
	TimeSource TimeSource
	Config     *config.Config

	// Standard streams
	Stdout io.Writer
	Stderr io.Writer

	// Metadata
	Version string
}

// TimeSource is the source of time information.
type TimeSource interface {
	Now() time.Time
}
