package notify

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/dtshconf/internal/config/layer"
	"github.com/dshills/dtshconf/internal/config/schema"
	"github.com/dshills/dtshconf/internal/config/store"
)

// recorder collects the changes an observer receives.
type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) observe(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, len(r.changes))
	for i, c := range r.changes {
		keys[i] = c.Key
	}
	return keys
}

func snapshot(values map[string]string) *store.Store {
	reg := schema.New()
	reg.MustRegister(schema.Setting{Key: "dtsh.pref.list.headers", Type: schema.TypeBool, Default: true})
	reg.MustRegister(schema.Setting{Key: "dtsh.prompt.wchar", Type: schema.TypeString, Default: ">"})

	l := layer.NewLayer("user", layer.SourceUser, layer.PriorityUser)
	for k, v := range values {
		l.Set(k, v)
	}
	return store.Build(layer.Merge(l), reg, store.Options{})
}

func TestChangeType_String(t *testing.T) {
	tests := []struct {
		ct   ChangeType
		want string
	}{
		{ChangeAdded, "added"},
		{ChangeModified, "modified"},
		{ChangeRemoved, "removed"},
		{ChangeReload, "reload"},
		{ChangeType(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.ct.String())
	}
}

func TestNotifier_Subscribe(t *testing.T) {
	n := New()
	defer n.Close()

	var r recorder
	sub := n.Subscribe(r.observe)

	n.Notify(Change{Key: "dtsh.a", Type: ChangeModified})
	sub.Unsubscribe()
	n.Notify(Change{Key: "dtsh.b", Type: ChangeModified})
	sub.Unsubscribe()

	assert.Equal(t, []string{"dtsh.a"}, r.keys())
	assert.Empty(t, sub.Prefix())
}

func TestNotifier_SubscribePrefix(t *testing.T) {
	n := New()
	defer n.Close()

	var list, prompt recorder
	sub := n.SubscribePrefix("dtsh.pref.list", list.observe)
	n.SubscribePrefix("dtsh.prompt", prompt.observe)

	n.Notify(Change{Key: "dtsh.pref.list.headers", Type: ChangeModified})
	n.Notify(Change{Key: "dtsh.prompt.wchar", Type: ChangeModified})
	n.Notify(Change{Key: "dtsh.pref.list", Type: ChangeAdded})
	n.Notify(Change{Key: "dtsh.pref.listing", Type: ChangeAdded})
	n.Notify(Change{Type: ChangeReload})

	assert.Equal(t, []string{"dtsh.pref.list.headers", "dtsh.pref.list", ""}, list.keys())
	assert.Equal(t, []string{"dtsh.prompt.wchar", ""}, prompt.keys())
	assert.Equal(t, "dtsh.pref.list", sub.Prefix())
}

func TestNotifier_SubscriptionOrder(t *testing.T) {
	n := New()
	defer n.Close()

	var order []int
	for i := range 3 {
		n.Subscribe(func(Change) { order = append(order, i) })
	}
	n.Notify(Change{Key: "dtsh.a"})

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestNotifier_Publish(t *testing.T) {
	n := New()
	defer n.Close()

	var r recorder
	n.Subscribe(r.observe)

	old := snapshot(map[string]string{"dtsh.extra": "1"})
	next := snapshot(map[string]string{"dtsh.pref.list.headers": "no", "dtsh.other": "x"})
	n.Publish(old, next, "/home/me/.config/dtsh/dtsh.ini")

	want := []struct {
		key string
		ct  ChangeType
	}{
		{"dtsh.extra", ChangeRemoved},
		{"dtsh.other", ChangeAdded},
		{"dtsh.pref.list.headers", ChangeModified},
		{"", ChangeReload},
	}
	require.Len(t, r.changes, len(want))
	for i, w := range want {
		c := r.changes[i]
		assert.Equal(t, w.key, c.Key)
		assert.Equal(t, w.ct, c.Type)
		assert.Equal(t, next.ID(), c.Snapshot)
		assert.Equal(t, "/home/me/.config/dtsh/dtsh.ini", c.Source)
	}
	assert.True(t, r.changes[2].Old.Bool())
	assert.False(t, r.changes[2].New.Bool())
}

func TestNotifier_PublishFirstSnapshot(t *testing.T) {
	n := New()
	defer n.Close()

	var r recorder
	n.Subscribe(r.observe)

	first := snapshot(nil)
	n.Publish(nil, first, "load")
	n.Publish(first, nil, "load")

	require.Len(t, r.changes, 1)
	assert.Equal(t, ChangeReload, r.changes[0].Type)
	assert.Equal(t, first.ID(), r.changes[0].Snapshot)
}

func TestNotifier_Async(t *testing.T) {
	n := New(WithAsync(4))

	got := make(chan Change, 8)
	n.Subscribe(func(c Change) { got <- c })

	n.Publish(snapshot(nil), snapshot(map[string]string{"dtsh.prompt.wchar": "$"}), "reload")

	select {
	case c := <-got:
		assert.Equal(t, "dtsh.prompt.wchar", c.Key)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for async delivery")
	}

	// Close drains what is still queued.
	n.Close()
	require.Len(t, got, 1)
	assert.Equal(t, ChangeReload, (<-got).Type)
}

func TestNotifier_ObserverMayUnsubscribe(t *testing.T) {
	n := New()
	defer n.Close()

	var count atomic.Int32
	var sub *Subscription
	sub = n.Subscribe(func(Change) {
		count.Add(1)
		sub.Unsubscribe()
	})

	n.Notify(Change{Key: "dtsh.a"})
	n.Notify(Change{Key: "dtsh.b"})

	assert.Equal(t, int32(1), count.Load())
}

func TestCovers(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   bool
	}{
		{"dtsh", "dtsh.pref.list.headers", true},
		{"dtsh.pref", "dtsh.pref.list.headers", true},
		{"", "dtsh.wchar.dash", true},
		{"dtsh.wchar.dash", "dtsh.wchar.dash", true},
		{"dtsh.pref", "dtsh.prompt.wchar", false},
		{"dtsh.pref", "dtsh.prefs", false},
		{"dtsh.pref.list.headers", "dtsh.pref.list", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, covers(tt.prefix, tt.key), "covers(%q, %q)", tt.prefix, tt.key)
	}
}

func TestNotifier_ConcurrentAccess(t *testing.T) {
	n := New()
	defer n.Close()

	var count atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Subscribe(func(Change) { count.Add(1) })
		}()
	}
	wg.Wait()

	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Notify(Change{Key: "dtsh.a", Type: ChangeModified, New: schema.IntValue(int64(i))})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(100), count.Load())
}

func TestNotifier_CloseIdempotent(t *testing.T) {
	for _, opts := range [][]Option{nil, {WithAsync(8)}} {
		n := New(opts...)
		var count atomic.Int32
		n.Subscribe(func(Change) { count.Add(1) })

		n.Close()
		n.Close()
		n.Notify(Change{Key: "dtsh.a"})

		assert.Zero(t, count.Load())
	}
}
