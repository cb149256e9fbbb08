package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScriptedRunIDs_InOrder(t *testing.T) {
	gen := NewScriptedRunIDs("a", "b")

	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Equal(t, "b-extra-1", gen.Generate())
	assert.Equal(t, "b-extra-2", gen.Generate())
}

func TestScriptedRunIDs_Default(t *testing.T) {
	gen := NewScriptedRunIDs()

	assert.Equal(t, "test-run", gen.Generate())
	assert.Equal(t, "test-run-extra-1", gen.Generate())
}

func TestScriptedRunIDs_ThreadSafe(t *testing.T) {
	gen := NewScriptedRunIDs("only")

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000, "every id is handed out once")
}
