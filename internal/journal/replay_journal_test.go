package journal

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdered(t *testing.T) {
	t.Run("preserves insertion order", func(t *testing.T) {
		var log Ordered[string]
		log.Append("a")
		log.Append("b")
		log.Append("a")

		assert.Equal(t, []string{"a", "b", "a"}, log.Snapshot())
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		var log Ordered[int]
		log.Append(1)

		snap := log.Snapshot()
		snap[0] = 99

		assert.Equal(t, []int{1}, log.Snapshot())
	})

	t.Run("empty snapshot", func(t *testing.T) {
		var log Ordered[int]
		assert.Empty(t, log.Snapshot())
	})

	t.Run("concurrent appends are all recorded", func(t *testing.T) {
		var log Ordered[int]
		var wg sync.WaitGroup

		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				log.Append(n)
			}(i)
		}
		wg.Wait()

		assert.Len(t, log.Snapshot(), 50)
	})
}

func TestLatest(t *testing.T) {
	var slot Latest[int]

	_, ok := slot.Get()
	assert.False(t, ok)

	slot.Set(10)
	slot.Set(20)

	v, ok := slot.Get()
	require.True(t, ok)
	assert.Equal(t, 20, v)
}

func TestKeyed(t *testing.T) {
	t.Run("keeps insertion order across overwrites", func(t *testing.T) {
		var log Keyed[string]
		log.Put("consumer-2", "q2")
		log.Put("consumer-1", "q1")
		log.Put("consumer-2", "q2b")

		assert.Equal(t, []string{"consumer-2", "consumer-1"}, log.Keys())
		assert.Equal(t, []KeyedEntry[string]{
			{Key: "consumer-2", Value: "q2b"},
			{Key: "consumer-1", Value: "q1"},
		}, log.Snapshot())
	})

	t.Run("concurrent puts", func(t *testing.T) {
		var log Keyed[int]
		var wg sync.WaitGroup

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				log.Put(fmt.Sprintf("k%d", n), n)
			}(i)
		}
		wg.Wait()

		assert.Len(t, log.Keys(), 20)
	})
}
