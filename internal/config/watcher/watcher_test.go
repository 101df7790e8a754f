package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wait = 2 * time.Second

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// recorder collects events delivered to a handler.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// waitFor waits until an event with op was delivered and returns it.
func (r *recorder) waitFor(t *testing.T, op Operation) Event {
	t.Helper()
	var found Event
	require.Eventually(t, func() bool {
		for _, e := range r.snapshot() {
			if e.Op == op {
				found = e
				return true
			}
		}
		return false
	}, wait, 10*time.Millisecond, "no %s event", op)
	return found
}

func startWatcher(t *testing.T, path string, opts ...Option) (*Watcher, *recorder) {
	t.Helper()
	w := New(opts...)
	rec := &recorder{}
	w.OnChange(rec.handle)
	require.NoError(t, w.Watch(path))
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)
	return w, rec
}

func TestNew(t *testing.T) {
	assert.Equal(t, DefaultDebounce, New().debounce)
	assert.Equal(t, 50*time.Millisecond, New(WithDebounce(50*time.Millisecond)).debounce)
	assert.Equal(t, DefaultDebounce, New(WithDebounce(-time.Second)).debounce)
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
}

func TestWatcher_Watch(t *testing.T) {
	dir := t.TempDir()
	w := New()

	require.NoError(t, w.Watch(filepath.Join(dir, "dtsh.ini")))
	require.NoError(t, w.Watch(filepath.Join(dir, "dtsh.ini")))
	// Files that do not exist yet are watched for creation.
	require.NoError(t, w.Watch(filepath.Join(dir, "extra.ini")))

	assert.Len(t, w.files, 2)
	assert.Equal(t, 2, w.dirs[dir])
}

func TestWatcher_StartStop(t *testing.T) {
	w := New()
	require.NoError(t, w.Watch(filepath.Join(t.TempDir(), "dtsh.ini")))
	// A file in a missing directory does not prevent starting.
	require.NoError(t, w.Watch(filepath.Join(t.TempDir(), "missing", "dtsh.ini")))

	require.NoError(t, w.Start())
	require.NoError(t, w.Start())
	assert.NotNil(t, w.fsw)

	w.Stop()
	w.Stop()
	assert.Nil(t, w.fsw)
}

func TestWatcher_DetectsFileModification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtsh.ini")
	writeFile(t, path, "[dtsh]\n")

	_, rec := startWatcher(t, path, WithDebounce(0))
	writeFile(t, path, "[dtsh]\npref.sizes_si = yes\n")

	assert.Equal(t, path, rec.waitFor(t, OpWrite).Path)
}

func TestWatcher_DetectsFileCreation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtsh.ini")

	_, rec := startWatcher(t, path, WithDebounce(0))
	writeFile(t, path, "[dtsh]\n")

	rec.waitFor(t, OpCreate)
}

func TestWatcher_DetectsFileDeletion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtsh.ini")
	writeFile(t, path, "[dtsh]\n")

	_, rec := startWatcher(t, path, WithDebounce(0))
	require.NoError(t, os.Remove(path))

	rec.waitFor(t, OpRemove)
}

func TestWatcher_WatchWhileRunning(t *testing.T) {
	w, rec := startWatcher(t, filepath.Join(t.TempDir(), "dtsh.ini"), WithDebounce(0))

	later := filepath.Join(t.TempDir(), "extra.ini")
	require.NoError(t, w.Watch(later))
	writeFile(t, later, "[dtsh]\n")

	assert.Equal(t, later, rec.waitFor(t, OpCreate).Path)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	_, rec := startWatcher(t, filepath.Join(dir, "dtsh.ini"), WithDebounce(0))

	writeFile(t, filepath.Join(dir, "other.ini"), "x")
	time.Sleep(200 * time.Millisecond)

	assert.Empty(t, rec.snapshot())
}

func TestWatcher_Debounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtsh.ini")
	writeFile(t, path, "[dtsh]\n")

	_, rec := startWatcher(t, path, WithDebounce(100*time.Millisecond))

	for range 5 {
		writeFile(t, path, "[dtsh]\n")
		time.Sleep(10 * time.Millisecond)
	}
	rec.waitFor(t, OpWrite)
	time.Sleep(300 * time.Millisecond)

	assert.Len(t, rec.snapshot(), 1)
}

func TestWatcher_StopDropsPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtsh.ini")
	writeFile(t, path, "[dtsh]\n")

	w, rec := startWatcher(t, path, WithDebounce(time.Hour))
	writeFile(t, path, "[dtsh]\nprompt.sparse = no\n")
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.pending) == 1
	}, wait, 10*time.Millisecond)

	w.Stop()

	assert.Empty(t, w.pending)
	assert.Empty(t, rec.snapshot())
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name string
		ops  []Operation
		want Operation
	}{
		{"create then write", []Operation{OpCreate, OpWrite}, OpCreate},
		{"writes", []Operation{OpWrite, OpWrite, OpWrite}, OpWrite},
		{"write then remove", []Operation{OpWrite, OpRemove}, OpRemove},
		{"replaced by rename", []Operation{OpRename, OpCreate}, OpWrite},
		{"removed then recreated", []Operation{OpRemove, OpCreate, OpWrite}, OpWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := tt.ops[0]
			for _, next := range tt.ops[1:] {
				op = coalesce(op, next)
			}
			assert.Equal(t, tt.want, op)
		})
	}
}

func TestWatcher_HandlerPanicIsContained(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtsh.ini")
	writeFile(t, path, "[dtsh]\n")

	w := New(WithDebounce(0))
	var before, after atomic.Int32
	w.OnChange(func(Event) { before.Add(1) })
	w.OnChange(func(Event) { panic("handler panics are contained") })
	w.OnChange(func(Event) { after.Add(1) })
	require.NoError(t, w.Watch(path))
	require.NoError(t, w.Start())
	defer w.Stop()

	writeFile(t, path, "[dtsh]\nprompt.sparse = no\n")

	require.Eventually(t, func() bool {
		return before.Load() > 0 && after.Load() > 0
	}, wait, 10*time.Millisecond)
}
