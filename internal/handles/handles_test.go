package handles

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndGet(t *testing.T) {
	type testData struct {
		Name  string
		Value int
	}

	table := NewTable[*testData]("test")
	data := &testData{Name: "test", Value: 42}
	h := table.Insert(data)
	require.False(t, h.IsZero())

	got, err := table.Get(h)
	require.NoError(t, err)
	require.Same(t, data, got)
	require.Equal(t, 1, table.Len())
}

func TestRemoveMakesHandleStale(t *testing.T) {
	table := NewTable[string]("test")
	h := table.Insert("value")

	v, err := table.Remove(h)
	require.NoError(t, err)
	require.Equal(t, "value", v)

	_, err = table.Get(h)
	require.ErrorIs(t, err, ErrStale)

	_, err = table.Remove(h)
	require.ErrorIs(t, err, ErrStale)
	require.Zero(t, table.Len())
}

func TestReusedSlotRejectsOldHandle(t *testing.T) {
	table := NewTable[int]("test")
	old := table.Insert(1)
	_, err := table.Remove(old)
	require.NoError(t, err)

	fresh := table.Insert(2)
	oldIdx, _ := old.slot()
	freshIdx, _ := fresh.slot()
	require.Equal(t, oldIdx, freshIdx, "slot should be reused")
	require.NotEqual(t, old, fresh)

	_, err = table.Get(old)
	require.ErrorIs(t, err, ErrStale)

	v, err := table.Get(fresh)
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestInvalidHandles(t *testing.T) {
	table := NewTable[int]("frame")

	_, err := table.Get(0)
	require.ErrorIs(t, err, ErrInvalid)

	_, err = table.Get(newHandle(99, 1))
	require.ErrorIs(t, err, ErrInvalid)
	require.Contains(t, err.Error(), "frame")
}

func TestHandlesAreUnique(t *testing.T) {
	table := NewTable[int]("test")
	seen := make(map[Handle]bool)

	for i := 0; i < 1000; i++ {
		h := table.Insert(i)
		require.False(t, seen[h], "handle %v issued twice", h)
		seen[h] = true
		if i%3 == 0 {
			_, err := table.Remove(h)
			require.NoError(t, err)
		}
	}
	require.Len(t, table.Handles(), table.Len())
}

func TestConcurrentAccess(t *testing.T) {
	const numGoroutines = 64
	const numOps = 100

	table := NewTable[[2]int]("test")
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				h := table.Insert([2]int{id, j})
				v, err := table.Get(h)
				if err != nil || v != [2]int{id, j} {
					t.Errorf("Get(%v) = %v, %v", h, v, err)
				}
				if _, err := table.Remove(h); err != nil {
					t.Errorf("Remove(%v): %v", h, err)
				}
			}
		}(i)
	}

	wg.Wait()
	require.Zero(t, table.Len())
}
