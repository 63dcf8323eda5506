package gate

import "sort"

// median returns the median of values: the middle element of the sorted
// slice, or the mean of the two middle elements for even counts. The second
// return is false when values is empty. The input slice is not mutated.
func median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}
