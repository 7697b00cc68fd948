// Package utils contains small shared helpers for the rest of the module.
package utils

import (
	"runtime"
	"sync"
	"sync/atomic"

	goutils "go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// chunksPerWorker trades scheduling overhead against balance. Rows of a sparse
// depth image vary wildly in cost, so workers pull several small chunks rather
// than one fixed slice each.
const chunksPerWorker = 4

// ParallelForEachRow calls f for every row in [0, totalRows). Row indexes are
// handed out in chunks from a shared counter, so a worker that lands on cheap
// rows comes back for more instead of idling while a neighbor grinds through
// dense ones. f must be safe to call concurrently for distinct rows.
func ParallelForEachRow(totalRows int, f func(row int)) {
	numWorkers := ParallelFactor
	if numWorkers > totalRows {
		numWorkers = totalRows
	}
	if numWorkers <= 1 {
		for row := 0; row < totalRows; row++ {
			f(row)
		}
		return
	}

	chunk := totalRows / (numWorkers * chunksPerWorker)
	if chunk < 1 {
		chunk = 1
	}

	var next int64
	var wait sync.WaitGroup
	wait.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		goutils.PanicCapturingGo(func() {
			defer wait.Done()
			for {
				start := int(atomic.AddInt64(&next, int64(chunk))) - chunk
				if start >= totalRows {
					return
				}
				end := start + chunk
				if end > totalRows {
					end = totalRows
				}
				for row := start; row < end; row++ {
					f(row)
				}
			}
		})
	}
	wait.Wait()
}
