package graph

import "sync"

// SafeGo runs fn on its own goroutine, registering it against wg, and routes
// any panic to onPanic instead of crashing the process. Parallel node
// execution (executeNodesParallel) relies on this so one node's panic can't
// take down a run that other, unrelated nodes are still completing.
func SafeGo(wg *sync.WaitGroup, fn func(), onPanic func(panicVal any)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil && onPanic != nil {
				onPanic(r)
			}
		}()
		fn()
	}()
}
