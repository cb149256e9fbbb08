package testutil

import (
	"fmt"
	"sync"
)

// ScriptedRunIDs hands out a fixed list of run ids in order, then
// "<last>-extra-N" once the list is exhausted.
//
// It satisfies store.RunIDGenerator, so stored runs get ids a test or a
// golden file can name. Safe for concurrent use.
type ScriptedRunIDs struct {
	mu   sync.Mutex
	ids  []string
	next int
}

// NewScriptedRunIDs creates a generator. With no ids it starts at
// "test-run".
func NewScriptedRunIDs(ids ...string) *ScriptedRunIDs {
	if len(ids) == 0 {
		ids = []string{"test-run"}
	}
	return &ScriptedRunIDs{ids: append([]string(nil), ids...)}
}

// Generate returns the next id.
func (g *ScriptedRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.next
	g.next++
	if n < len(g.ids) {
		return g.ids[n]
	}
	return fmt.Sprintf("%s-extra-%d", g.ids[len(g.ids)-1], n-len(g.ids)+1)
}
