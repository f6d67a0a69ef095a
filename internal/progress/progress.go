// Package progress derives a project's completion percentage from its
// stories. The value is never stored; callers recompute it on every read.
package progress

import (
	"math"

	"tienda/api/internal/store"
)

// Percent returns round(100 * done / total) in [0,100], 0 for no stories.
// Rounding is half-up.
func Percent(stories []store.Story) int {
	if len(stories) == 0 {
		return 0
	}
	done := 0
	for _, story := range stories {
		if story.Status == store.StoryDone {
			done++
		}
	}
	return int(math.Round(float64(done) * 100 / float64(len(stories))))
}
