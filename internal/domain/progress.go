package domain

// ProgressPercentage recomputes a goal's progress from task counts:
// floor(completed/total*100), clamped to [0,100]. Zero tasks means zero
// progress. The stored value on Goal is a cache of this computation.
func ProgressPercentage(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return completed * 100 / total
}
