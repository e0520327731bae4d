package errors

import (
	"errors"
	"log/slog"
	"sort"

	"go.hackfix.me/ratchet/migrator"
)

// Log logs an error using logger, extracting metadata if it's a
// StructuredError, and the affected migration if it's a migrator error.
func Log(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		args []any
		msg  = err.Error()
	)

	var serr *StructuredError
	if errors.As(err, &serr) {
		msg = serr.Error()
		if cause := serr.Cause(); cause != nil {
			args = append(args, "cause", cause)
		}

		metadata := serr.Metadata()
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			args = append(args, k, metadata[k])
		}
	}

	args = append(args, migrationFields(err)...)

	logger.Error(msg, args...)
}

func migrationFields(err error) []any {
	var (
		actErr  migrator.ActionError
		loadErr migrator.LoadError
		nfErr   migrator.NotFoundError
		ioErr   migrator.IOError
	)
	switch {
	case errors.As(err, &actErr):
		return []any{"migration", actErr.ID, "direction", actErr.Direction}
	case errors.As(err, &loadErr):
		return []any{"path", loadErr.Path}
	case errors.As(err, &nfErr):
		return []any{"migration", nfErr.ID}
	case errors.As(err, &ioErr):
		return []any{"path", ioErr.Path}
	}

	return nil
}
