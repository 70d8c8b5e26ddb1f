package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingPushAndItems(t *testing.T) {
	r := NewRing[int](3)
	assert.Equal(t, 0, r.Len())

	r.Push(1)
	r.Push(2)
	assert.Equal(t, []int{1, 2}, r.Items())
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	assert.Equal(t, []int{3, 4, 5}, r.Items())
	assert.Equal(t, 3, r.Len())
}

func TestRingClear(t *testing.T) {
	r := NewRing[string](2)
	r.Push("a")
	r.Push("b")
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Items())
}

func TestRingMinimumCapacity(t *testing.T) {
	r := NewRing[int](0)
	r.Push(1)
	r.Push(2)
	assert.Equal(t, []int{2}, r.Items())
}

func TestRingItemsIsCopy(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)
	items := r.Items()
	items[0] = 99
	assert.Equal(t, []int{1}, r.Items())
}

func TestRingConcurrentPush(t *testing.T) {
	r := NewRing[int](64)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Push(n*100 + j)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 64, r.Len())
}
