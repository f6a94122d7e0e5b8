// Package util
//
// This file provides the priority queue behind the run-loop's timers.
//
// The implementation combines a binary heap with a hash map, so that the
// earliest deadline is found in O(1), popped in O(log n) and any pending timer
// can be cancelled by its id in O(log n):
//
//   - Key:      timer id (unique per loop)
//   - Priority: deadline in unix nanoseconds
//
// Concurrency Considerations:
//   - This implementation is not thread-safe
//   - The run-loop guards it with its timer mutex
//
// Example usage:
//
//	timers := NewMapHeap()
//	timers.AddItem(1, uint64(time.Now().Add(2*time.Second).UnixNano()))
//	timers.AddItem(2, uint64(time.Now().Add(time.Second).UnixNano()))
//
//	// cancel timer 1
//	timers.RemoveByKey(1)
//
//	// fire everything that is due
//	for {
//	    key, deadline, ok := timers.Peek()
//	    if !ok || deadline > uint64(time.Now().UnixNano()) {
//	        break
//	    }
//	    timers.PopMin()
//	    fire(key)
//	}
package util

import (
	"container/heap"
	"strconv"
)

// item is one heap entry with a uint64 key for identification and a uint64 priority
type item struct {
	Key      uint64
	Priority uint64
	index    int // index in the heap, maintained by the heap package
}

func (i *item) String() string {
	return "{Key: " + strconv.FormatUint(i.Key, 10) + ", Priority: " + strconv.FormatUint(i.Priority, 10) + "}"
}

// MapHeap is a min-heap ordered by priority with key-based access
type MapHeap struct {
	items    []*item
	itemsMap map[uint64]*item
}

// NewMapHeap creates a new, empty heap
func NewMapHeap() *MapHeap {
	return &MapHeap{
		items:    make([]*item, 0),
		itemsMap: make(map[uint64]*item),
	}
}

// Len returns the number of items in the heap (part of heap.Interface)
func (mh *MapHeap) Len() int { return len(mh.items) }

// Less orders by priority; equal priorities are ordered by key so timers
// armed for the same instant fire in arming order (ids are increasing)
func (mh *MapHeap) Less(i, j int) bool {
	if mh.items[i].Priority == mh.items[j].Priority {
		return mh.items[i].Key < mh.items[j].Key
	}
	return mh.items[i].Priority < mh.items[j].Priority
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (mh *MapHeap) Swap(i, j int) {
	mh.items[i], mh.items[j] = mh.items[j], mh.items[i]
	mh.items[i].index = i
	mh.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface, use AddItem instead)
func (mh *MapHeap) Push(x interface{}) {
	it := x.(*item)
	it.index = len(mh.items)
	mh.items = append(mh.items, it)
	mh.itemsMap[it.Key] = it
}

// Pop removes and returns the last item (part of heap.Interface, use PopMin instead)
func (mh *MapHeap) Pop() interface{} {
	old := mh.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // avoid memory leak
	it.index = -1
	mh.items = old[:n-1]
	delete(mh.itemsMap, it.Key)
	return it
}

// AddItem adds a new item or moves an existing one to the new priority
func (mh *MapHeap) AddItem(key, priority uint64) {
	if it, exists := mh.itemsMap[key]; exists {
		it.Priority = priority
		heap.Fix(mh, it.index)
		return
	}
	heap.Push(mh, &item{Key: key, Priority: priority})
}

// RemoveByKey removes an item by its key and returns its priority
func (mh *MapHeap) RemoveByKey(key uint64) (uint64, bool) {
	it, exists := mh.itemsMap[key]
	if !exists {
		return 0, false
	}
	heap.Remove(mh, it.index)
	return it.Priority, true
}

// Peek returns the key and priority of the minimum item without removing it
func (mh *MapHeap) Peek() (key uint64, priority uint64, ok bool) {
	if len(mh.items) == 0 {
		return 0, 0, false
	}
	return mh.items[0].Key, mh.items[0].Priority, true
}

// PopMin removes the minimum item and returns its key and priority
func (mh *MapHeap) PopMin() (key uint64, priority uint64, ok bool) {
	if len(mh.items) == 0 {
		return 0, 0, false
	}
	it := heap.Pop(mh).(*item)
	return it.Key, it.Priority, true
}

// Contains checks if a key exists in the heap
func (mh *MapHeap) Contains(key uint64) bool {
	_, exists := mh.itemsMap[key]
	return exists
}
