package utils

// RollingAverage averages the last N samples added to it.
type RollingAverage struct {
	data  []int
	pos   int
	count int
}

// NewRollingAverage returns a RollingAverage over the given window size.
func NewRollingAverage(numSamples int) *RollingAverage {
	return &RollingAverage{data: make([]int, numSamples)}
}

// NumSamples returns the window size.
func (ra *RollingAverage) NumSamples() int {
	return len(ra.data)
}

// Add appends a sample, evicting the oldest once the window is full.
func (ra *RollingAverage) Add(x int) {
	ra.data[ra.pos] = x
	ra.pos++
	if ra.pos >= len(ra.data) {
		ra.pos = 0
	}
	if ra.count < len(ra.data) {
		ra.count++
	}
}

// Average returns the mean of the samples seen so far, 0 if none.
func (ra *RollingAverage) Average() int {
	if ra.count == 0 {
		return 0
	}
	sum := 0
	for i := 0; i < ra.count; i++ {
		sum += ra.data[i]
	}
	return sum / ra.count
}
