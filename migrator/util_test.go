package migrator_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/ratchet/migrator"
	"go.hackfix.me/ratchet/storage/memory"
)

const migrationsDir = "/migrations"

// fixture is a migrations directory with Go function migrations that record
// their calls.
type fixture struct {
	fs    vfs.FileSystem
	store *memory.Storage
	m     *migrator.Migrator

	mx     sync.Mutex
	calls  []string
	failOn map[string]error
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()

	f := &fixture{
		fs:     memoryfs.New(),
		store:  memory.New(),
		failOn: map[string]error{},
	}
	require.NoError(t, f.fs.MkdirAll(migrationsDir, 0o755))

	funcs := migrator.Funcs{}
	for _, name := range names {
		f.addFile(t, name)
		funcs[name] = map[string]migrator.Action{
			"up":   f.action("up", name),
			"down": f.action("down", name),
		}
	}

	var err error
	f.m, err = migrator.New(
		migrator.WithFS(f.fs),
		migrator.WithMigrationsPath(migrationsDir),
		migrator.WithLoader(".sql", funcs),
		migrator.WithStorageInstance(f.store),
		migrator.WithLogger(slog.New(slog.DiscardHandler)),
	)
	require.NoError(t, err)

	return f
}

func (f *fixture) addFile(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, vfs.WriteFile(f.fs, migrationsDir+"/"+name, []byte(name), 0o644))
}

func (f *fixture) action(dir, name string) migrator.Action {
	return func(_ context.Context) error {
		call := fmt.Sprintf("%s:%s", dir, name)
		f.mx.Lock()
		defer f.mx.Unlock()
		f.calls = append(f.calls, call)
		return f.failOn[call]
	}
}

func (f *fixture) getCalls() []string {
	f.mx.Lock()
	defer f.mx.Unlock()
	return append([]string{}, f.calls...)
}

func (f *fixture) countCalls(call string) int {
	n := 0
	for _, c := range f.getCalls() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fixture) applied(t *testing.T) []string {
	t.Helper()
	ids, err := f.store.Executed(t.Context())
	require.NoError(t, err)
	return append([]string{}, ids...)
}

func ids(migrations []*migrator.Migration) []string {
	out := make([]string, len(migrations))
	for i, m := range migrations {
		out[i] = m.ID
	}
	return out
}
