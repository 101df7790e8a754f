package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_AddLayer(t *testing.T) {
	m := NewManager()

	m.AddLayer(NewLayer("user", SourceUser, PriorityUser))
	m.AddLayer(NewLayer("environment", SourceEnv, PriorityEnv))
	m.AddLayer(NewLayer("defaults", SourceBuiltin, PriorityBuiltin))

	require.Equal(t, 3, m.LayerCount())

	layers := m.Layers()
	assert.Equal(t, "defaults", layers[0].Name, "lowest priority first")
	assert.Equal(t, "user", layers[1].Name)
	assert.Equal(t, "environment", layers[2].Name)
}

func TestManager_AddLayerReplacesSameName(t *testing.T) {
	m := NewManager()
	m.AddLayer(layerOf("user", "dtsh.x", "1"))
	m.AddLayer(layerOf("user", "dtsh.x", "2"))

	assert.Equal(t, 1, m.LayerCount())
	assert.Equal(t, map[string]string{"dtsh.x": "2"}, m.Merge().Raw())
}

func TestManager_RemoveLayer(t *testing.T) {
	m := NewManager()
	m.AddLayer(NewLayer("test1", SourceBuiltin, PriorityBuiltin))
	m.AddLayer(NewLayer("test2", SourceUser, PriorityUser))

	assert.True(t, m.RemoveLayer("test1"))
	assert.Equal(t, 1, m.LayerCount())
	assert.False(t, m.RemoveLayer("nonexistent"))
	require.Len(t, m.Layers(), 1)
	assert.Equal(t, "test2", m.Layers()[0].Name)
}

func TestManager_EqualPriorityKeepsOrder(t *testing.T) {
	m := NewManager()
	m.AddLayer(layerOf("first", "dtsh.x", "1"))
	m.AddLayer(layerOf("second", "dtsh.x", "2"))
	m.AddLayer(NewLayer("defaults", SourceBuiltin, PriorityBuiltin))

	names := make([]string, 0, 3)
	for _, l := range m.Layers() {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"defaults", "first", "second"}, names)
	assert.Equal(t, "2", m.Merge().Raw()["dtsh.x"])
}

func TestManager_MergeByPriority(t *testing.T) {
	m := NewManager()

	env := NewLayer("environment", SourceEnv, PriorityEnv)
	env.Set("dtsh.x", "env")
	def := NewLayer("defaults", SourceBuiltin, PriorityBuiltin)
	def.Set("dtsh.x", "default")
	def.Set("dtsh.y", "default")

	m.AddLayer(env)
	m.AddLayer(def)

	assert.Equal(t, map[string]string{"dtsh.x": "env", "dtsh.y": "default"}, m.Merge().Raw())
	assert.Equal(t, []string{"environment", "defaults"}, m.Providers("dtsh.x"))
	assert.Equal(t, []string{"defaults"}, m.Providers("dtsh.y"))
	assert.Empty(t, m.Providers("dtsh.z"))
}

func TestManager_MergeReturnsClone(t *testing.T) {
	m := NewManager()
	m.AddLayer(layerOf("a", "dtsh.x", "1"))

	first := m.Merge()
	first.Set("dtsh.x", "mutated")

	assert.Equal(t, map[string]string{"dtsh.x": "1"}, m.Merge().Raw())
}

func TestManager_MergeCacheInvalidated(t *testing.T) {
	m := NewManager()
	m.AddLayer(layerOf("a", "dtsh.x", "1"))
	assert.Equal(t, "1", m.Merge().Raw()["dtsh.x"])

	m.AddLayer(layerOf("b", "dtsh.x", "2"))
	assert.Equal(t, "2", m.Merge().Raw()["dtsh.x"])

	m.RemoveLayer("b")
	assert.Equal(t, "1", m.Merge().Raw()["dtsh.x"])
}
