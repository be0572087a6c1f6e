package aggregate

import (
	"fmt"
	"sort"

	"github.com/corpradar/backend/internal/models"
)

// Task is one (year, report code) pair to fetch.
type Task struct {
	Year       int
	ReportCode models.ReportCode
}

func (t Task) String() string {
	return fmt.Sprintf("%d/%s", t.Year, t.ReportCode)
}

// Tasks expands the requested sets into their Cartesian product. Duplicates
// are dropped; years ascend, and codes ascend within a year.
func Tasks(years []int, codes []models.ReportCode) []Task {
	ys := uniqueSorted(years, func(a, b int) bool { return a < b })
	cs := uniqueSorted(codes, func(a, b models.ReportCode) bool { return a < b })

	tasks := make([]Task, 0, len(ys)*len(cs))
	for _, y := range ys {
		for _, c := range cs {
			tasks = append(tasks, Task{Year: y, ReportCode: c})
		}
	}
	return tasks
}

func uniqueSorted[T comparable](in []T, less func(a, b T) bool) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Mode is the presentation mode callers pick from the request's cardinality.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeBulk   Mode = "bulk"
)

// ModeFor returns ModeSingle when the request covers exactly one pair.
func ModeFor(years []int, codes []models.ReportCode) Mode {
	if len(Tasks(years, codes)) == 1 {
		return ModeSingle
	}
	return ModeBulk
}
