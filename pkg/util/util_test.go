package util

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUID(t *testing.T) {
	id := UID("m")
	assert.True(t, strings.HasPrefix(id, "m_"))
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, UID("m"))
}

func TestNextSeqMonotonic(t *testing.T) {
	prev := NextSeq()
	for i := 0; i < 1000; i++ {
		next := NextSeq()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestNextSeqConcurrent(t *testing.T) {
	const workers = 8
	const perWorker = 500

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				seq := NextSeq()
				mu.Lock()
				seen[seq] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 并发取号不会重复
	assert.Len(t, seen, workers*perWorker)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "long st...", TruncateString("long string here", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
}
