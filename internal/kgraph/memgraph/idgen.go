package memgraph

import (
	"fmt"
	"sync/atomic"
)

// idGenerator hands out monotonically increasing, lexicographically sortable
// ids (n0000001, n0000002, ...) so default-assigned node/edge ids preserve
// insertion order under sorted iteration — required by scenario S1, which
// mandates edges render in insertion order.
type idGenerator struct {
	counter uint64
}

func (g *idGenerator) next(prefix string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s%07d", prefix, n)
}
