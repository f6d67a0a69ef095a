package progress

import (
	"testing"

	"tienda/api/internal/store"
)

func stories(statuses ...string) []store.Story {
	items := make([]store.Story, 0, len(statuses))
	for _, status := range statuses {
		items = append(items, store.Story{Status: status})
	}
	return items
}

func TestPercent(t *testing.T) {
	cases := []struct {
		name string
		in   []store.Story
		want int
	}{
		{name: "no stories", in: nil, want: 0},
		{name: "empty slice", in: []store.Story{}, want: 0},
		{name: "all pending", in: stories("pending", "pending"), want: 0},
		{name: "all done", in: stories("done", "done", "done"), want: 100},
		{name: "half done", in: stories("done", "pending"), want: 50},
		{name: "one of three", in: stories("done", "pending", "pending"), want: 33},
		{name: "two of three", in: stories("done", "done", "pending"), want: 67},
		{name: "rounds half up", in: stories("done", "pending", "done", "pending",
			"done", "pending", "pending", "pending"), want: 38},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Percent(tc.in); got != tc.want {
				t.Fatalf("Percent = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestPercentMonotonicAsStoriesFlipToDone(t *testing.T) {
	items := stories("pending", "pending", "pending", "pending", "pending")
	previous := Percent(items)
	for i := range items {
		items[i].Status = store.StoryDone
		current := Percent(items)
		if current < previous {
			t.Fatalf("progress decreased from %d to %d after marking story %d done", previous, current, i)
		}
		previous = current
	}
	if previous != 100 {
		t.Fatalf("expected 100 with every story done, got %d", previous)
	}
}

func TestPercentIsPureUnderRepeatedCalls(t *testing.T) {
	items := stories("done", "pending", "done")
	first := Percent(items)
	second := Percent(items)
	if first != second {
		t.Fatalf("Percent not deterministic: %d then %d", first, second)
	}
}
