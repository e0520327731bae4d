// Package migrator applies and reverts versioned migration files.
//
// Features:
//   - Discovers migration files in a directory, filtered by a filename pattern
//     and ordered by filename (`{ordinal}-{name}.{ext}`)
//   - Loads each file into a Migration with optional up and down actions,
//     using a Loader selected by file extension (SQL files, Go functions)
//   - Computes pending migrations by comparing discovered files with the
//     applied set kept by a pluggable storage adapter
//   - Executes batches strictly in order, stopping at the first failure
//   - Steps forward to a target migration or all pending ones, and back to a
//     target migration or one step
//
// Migrations are identified by their file name, never by their full path.
package migrator
