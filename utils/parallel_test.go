package utils

import (
	"sync"
	"testing"

	"go.viam.com/test"
)

func TestParallelForEachRow(t *testing.T) {
	for _, totalRows := range []int{0, 1, 3, 17, 480, 1024} {
		visits := make([]int, totalRows)
		var mu sync.Mutex
		ParallelForEachRow(totalRows, func(row int) {
			mu.Lock()
			visits[row]++
			mu.Unlock()
		})
		for row, n := range visits {
			test.That(t, n, test.ShouldEqual, 1)
			_ = row
		}
	}
}

func TestRollingAverage(t *testing.T) {
	ra := NewRollingAverage(4)
	test.That(t, ra.NumSamples(), test.ShouldEqual, 4)
	test.That(t, ra.Average(), test.ShouldEqual, 0)

	ra.Add(10)
	test.That(t, ra.Average(), test.ShouldEqual, 10)

	ra.Add(20)
	ra.Add(30)
	ra.Add(40)
	test.That(t, ra.Average(), test.ShouldEqual, 25)

	// window rolls over, 10 falls out
	ra.Add(50)
	test.That(t, ra.Average(), test.ShouldEqual, 35)
}
