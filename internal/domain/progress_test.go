package domain

import "testing"

func TestProgressPercentage(t *testing.T) {
	tests := []struct {
		name             string
		completed, total int
		want             int
	}{
		{"no tasks", 0, 0, 0},
		{"none completed", 0, 10, 0},
		{"all completed", 10, 10, 100},
		{"floor rounding", 1, 3, 33},
		{"two thirds", 2, 3, 66},
		{"over-count clamps", 12, 10, 100},
		{"negative completed clamps", -1, 10, 0},
		{"negative total clamps", 5, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProgressPercentage(tt.completed, tt.total); got != tt.want {
				t.Errorf("ProgressPercentage(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
			}
			got := ProgressPercentage(tt.completed, tt.total)
			if got < 0 || got > 100 {
				t.Errorf("progress %d out of [0,100]", got)
			}
		})
	}
}
