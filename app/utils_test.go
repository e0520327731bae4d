package app

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/nrednav/cuid2"
	"github.com/stretchr/testify/require"

	actx "go.hackfix.me/ratchet/app/context"
	"go.hackfix.me/ratchet/db"
)

const (
	workDir       = "/work"
	migrationsDir = "/work/migrations"
)

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

type testApp struct {
	*App
	fs             vfs.FileSystem
	stdout, stderr *safeBuffer
	env            *mockEnv
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	var (
		fs               = memoryfs.New()
		stdoutW, stderrW = newSafeBuffer(), newSafeBuffer()
		env              = &mockEnv{wd: workDir}
	)
	require.NoError(t, fs.MkdirAll(migrationsDir, 0o755))

	app, err := New("ratchet", "/config.json",
		WithTimeNow(timeNowFn),
		WithEnv(env),
		WithContext(t.Context()),
		WithFDs(stdoutW, stderrW),
		WithFS(fs),
		WithLogger(false),
	)
	require.NoError(t, err)

	return &testApp{App: app, fs: fs, stdout: stdoutW, stderr: stderrW, env: env}
}

// Run executes the app with args, after discarding the output of any previous
// run.
func (ta *testApp) Run(args ...string) error {
	ta.stdout.Reset()
	ta.stderr.Reset()

	return ta.App.Run(args)
}

func (ta *testApp) writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, vfs.WriteFile(ta.fs, path, []byte(data), 0o644))
}

func (ta *testApp) writeMigration(t *testing.T, name, up, down string) {
	t.Helper()
	ta.writeFile(t, migrationsDir+"/"+name,
		fmt.Sprintf("-- +migrate up\n%s\n-- +migrate down\n%s\n", up, down))
}

// newSQLiteDSN returns the DSN of a new in-memory SQLite database, which is
// kept open until the test ends so that its data survives between app runs.
func newSQLiteDSN(t *testing.T) (string, *db.DB) {
	t.Helper()

	// Not using just :memory: to avoid 'no such table' issue.
	// See https://github.com/mattn/go-sqlite3#faq
	dsn := fmt.Sprintf("file:ratchet-%s?mode=memory&cache=shared", cuid2.Generate())
	d, err := db.Open(t.Context(), "sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return dsn, d
}

type mockEnv struct {
	mx sync.RWMutex
	wd string
}

var _ actx.Environment = (*mockEnv)(nil)

func (me *mockEnv) Getwd() (string, error) {
	me.mx.RLock()
	defer me.mx.RUnlock()
	return me.wd, nil
}

// safeBuffer is a thread-safe buffer.
type safeBuffer struct {
	mx  sync.RWMutex
	buf *bytes.Buffer
}

func newSafeBuffer() *safeBuffer {
	return &safeBuffer{buf: &bytes.Buffer{}}
}

func (b *safeBuffer) Write(p []byte) (n int, err error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Reset() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.buf.Reset()
}

func (b *safeBuffer) String() string {
	b.mx.RLock()
	defer b.mx.RUnlock()
	return b.buf.String()
}
