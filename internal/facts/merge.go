package facts

import (
	"github.com/sells-group/cervejazero/internal/model"
)

// MergeWithPriority combines bundled facts with runtime facts. For a natural
// key present on both sides the runtime row survives; surviving rows keep
// their relative order (local rows first, then runtime rows). Duplicates
// inside a single side also collapse to their last occurrence.
func MergeWithPriority(local, runtime []model.FactRow) []model.FactRow {
	if len(runtime) == 0 {
		return clone(local)
	}
	if len(local) == 0 {
		return clone(runtime)
	}

	all := make([]model.FactRow, 0, len(local)+len(runtime))
	all = append(all, local...)
	all = append(all, runtime...)

	last := make(map[model.Key]int, len(all))
	for i, r := range all {
		last[r.Key()] = i
	}

	out := make([]model.FactRow, 0, len(last))
	for i, r := range all {
		if last[r.Key()] == i {
			out = append(out, r)
		}
	}
	return out
}

func clone(rows []model.FactRow) []model.FactRow {
	out := make([]model.FactRow, len(rows))
	copy(out, rows)
	return out
}
