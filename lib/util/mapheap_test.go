package util

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math/rand"
	"testing"
)

// drain pops every entry and returns the keys in pop order
func drain(mh *MapHeap) []uint64 {
	var keys []uint64
	for {
		key, _, ok := mh.PopMin()
		if !ok {
			return keys
		}
		keys = append(keys, key)
	}
}

func TestMapHeapEmpty(t *testing.T) {
	mh := NewMapHeap()

	assert.Zero(t, mh.Len())
	assert.Empty(t, mh.itemsMap)

	_, _, ok := mh.Peek()
	assert.False(t, ok)
	_, _, ok = mh.PopMin()
	assert.False(t, ok)
	_, ok = mh.RemoveByKey(1)
	assert.False(t, ok)
}

// timers keyed by id with their deadline as priority
func TestMapHeapEarliestDeadlineFirst(t *testing.T) {
	mh := NewMapHeap()
	deadlines := map[uint64]uint64{10: 3000, 11: 1000, 12: 2000, 13: 500}
	for id, deadline := range deadlines {
		mh.AddItem(id, deadline)
	}
	require.Equal(t, 4, mh.Len())

	key, prio, ok := mh.Peek()
	require.True(t, ok)
	assert.Equal(t, uint64(13), key)
	assert.Equal(t, uint64(500), prio)
	assert.Equal(t, 4, mh.Len(), "Peek must not remove")

	assert.Equal(t, []uint64{13, 11, 12, 10}, drain(mh))
	assert.Zero(t, mh.Len())
	assert.Empty(t, mh.itemsMap)
}

func TestMapHeapRearm(t *testing.T) {
	mh := NewMapHeap()
	mh.AddItem(1, 100)
	mh.AddItem(2, 200)

	// moving a deadline replaces the entry
	mh.AddItem(1, 300)
	assert.Equal(t, 2, mh.Len())
	key, _, _ := mh.Peek()
	assert.Equal(t, uint64(2), key)

	mh.AddItem(2, 400)
	assert.Equal(t, []uint64{1, 2}, drain(mh))
}

func TestMapHeapCancel(t *testing.T) {
	mh := NewMapHeap()
	for id := uint64(1); id <= 3; id++ {
		mh.AddItem(id, id*100)
	}

	prio, ok := mh.RemoveByKey(2)
	require.True(t, ok)
	assert.Equal(t, uint64(200), prio)
	assert.False(t, mh.Contains(2))
	assert.True(t, mh.Contains(1))
	assert.True(t, mh.Contains(3))

	// a cancelled or fired timer is gone
	_, ok = mh.RemoveByKey(2)
	assert.False(t, ok)

	assert.Equal(t, []uint64{1, 3}, drain(mh))
}

func TestMapHeapTiesPopByKey(t *testing.T) {
	mh := NewMapHeap()
	for _, id := range []uint64{7, 3, 9, 1} {
		mh.AddItem(id, 1000)
	}
	assert.Equal(t, []uint64{1, 3, 7, 9}, drain(mh))
}

func TestMapHeapRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	mh := NewMapHeap()
	live := make(map[uint64]bool)

	for i := 0; i < 5000; i++ {
		id := uint64(rng.Intn(500))
		if rng.Intn(3) == 0 {
			_, ok := mh.RemoveByKey(id)
			assert.Equal(t, live[id], ok, "remove of %d", id)
			delete(live, id)
			continue
		}
		mh.AddItem(id, uint64(rng.Intn(10000)))
		live[id] = true
	}
	require.Equal(t, len(live), mh.Len())

	var last uint64
	for mh.Len() > 0 {
		key, prio, ok := mh.PopMin()
		require.True(t, ok)
		require.GreaterOrEqual(t, prio, last, "key %d popped out of order", key)
		require.True(t, live[key])
		delete(live, key)
		last = prio
	}
	assert.Empty(t, live)
}
