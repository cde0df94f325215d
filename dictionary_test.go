//go:build !ios && !android && (amd64 || arm64)

package avbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictionarySetAndAdd(t *testing.T) {
	_, b := newTestBridge(t)
	d, err := b.NewDictionary()
	require.NoError(t, err)
	defer d.Destroy()

	_, ok := d.Get("title")
	assert.False(t, ok)

	require.NoError(t, d.Set("title", "first"))
	require.NoError(t, d.Set("title", "second"))
	v, ok := d.Get("title")
	require.True(t, ok)
	assert.Equal(t, "second", v)
	assert.Equal(t, 1, d.Len())

	require.NoError(t, d.Add("artist", "a"))
	require.NoError(t, d.Add("artist", "b"))
	assert.Equal(t, 3, d.Len())
	v, _ = d.Get("artist")
	assert.Equal(t, "a", v)

	// Keys match case sensitively.
	_, ok = d.Get("TITLE")
	assert.False(t, ok)

	assert.Equal(t, []DictEntry{
		{Key: "title", Value: "second"},
		{Key: "artist", Value: "a"},
		{Key: "artist", Value: "b"},
	}, d.Entries())
}

func TestDictionaryCopyIsIndependent(t *testing.T) {
	_, b := newTestBridge(t)
	d, err := b.NewDictionaryFrom(map[string]string{"preset": "fast"})
	require.NoError(t, err)
	defer d.Destroy()

	c, err := d.Copy()
	require.NoError(t, err)
	defer c.Destroy()

	require.NoError(t, d.Set("preset", "slow"))
	v, ok := c.Get("preset")
	require.True(t, ok)
	assert.Equal(t, "fast", v)

	require.NoError(t, d.Destroy())
	assert.Equal(t, 1, c.Len())
	assert.Zero(t, d.Len())
}
