package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColorLookupCacheRegisterAndStore(t *testing.T) {
	c := NewColorLookupCache(0)

	queued := c.RegisterColor("cfg1", "rgb", []float64{1, 0, 0})
	require.True(t, queued)

	queuedAgain := c.RegisterColor("cfg1", "rgb", []float64{1, 0, 0})
	require.False(t, queuedAgain)

	pending := c.Pending("cfg1")
	require.Len(t, pending["rgb"], 1)

	c.StoreColor("cfg1", "rgb", []float64{1, 0, 0}, []float64{0, 0, 0, 1})
	c.ClearPending("cfg1")

	v, ok := c.LookupColor("cfg1", "rgb", []float64{1, 0, 0})
	require.True(t, ok)
	require.Equal(t, []float64{0, 0, 0, 1}, v)
}

func TestColorLookupCacheEvictionBound(t *testing.T) {
	c := NewColorLookupCache(100)

	for i := 0; i < 120; i++ {
		c.StoreColor("cfg", "gray", []float64{float64(i)}, []float64{float64(i)})
	}

	require.LessOrEqual(t, c.Size(), 110)
	require.Equal(t, c.Size(), len(c.entries["cfg"]))
}

func TestBufferRegistryReleaseClearsTotals(t *testing.T) {
	r := NewBufferRegistry()
	r.Store("7-0", make([]byte, 100))
	require.Equal(t, 1, r.Count())
	require.Equal(t, 100, r.TotalBytes())

	r.Release("7-0")
	require.Equal(t, 0, r.Count())
	require.Equal(t, 0, r.TotalBytes())
}

func TestProfileKeyFingerprint(t *testing.T) {
	require.Equal(t, "buf:0:0:0", ProfileKey(nil))
	b := []byte{1, 2, 3, 4}
	require.Equal(t, "buf:4:1:4", ProfileKey(b))
}
