package kv

import (
	"bytes"
	"sort"

	"github.com/aretw0/stacktester/pkg/domain"
)

// Resolve returns the index in rows that sel points at, clamped to [0, len(rows)].
// rows must be sorted by key.
func Resolve(rows []domain.KeyValue, sel domain.KeySelector) int {
	i := sort.Search(len(rows), func(i int) bool {
		c := bytes.Compare(rows[i].Key, sel.Key)
		if sel.OrEqual {
			return c > 0
		}
		return c >= 0
	})
	idx := i - 1 + sel.Offset
	if idx < 0 {
		return 0
	}
	if idx > len(rows) {
		return len(rows)
	}
	return idx
}

// RangeResult is the outcome of a range read over a snapshot.
type RangeResult struct {
	Rows []domain.KeyValue

	// ConflictBegin and ConflictEnd bound the keys whose change could alter Rows.
	ConflictBegin []byte
	ConflictEnd   []byte
}

// ReadRange selects the rows between two selectors, applying limit and direction.
func ReadRange(rows []domain.KeyValue, begin, end domain.KeySelector, limit int, reverse bool) RangeResult {
	bi := Resolve(rows, begin)
	ei := Resolve(rows, end)

	res := RangeResult{ConflictBegin: begin.Key, ConflictEnd: end.Key}
	if bi < len(rows) && bytes.Compare(rows[bi].Key, res.ConflictBegin) < 0 {
		res.ConflictBegin = rows[bi].Key
	}
	if bytes.Compare(res.ConflictEnd, res.ConflictBegin) < 0 {
		res.ConflictEnd = res.ConflictBegin
	}
	if bi >= ei {
		return res
	}
	if after := append(clone(rows[ei-1].Key), 0x00); bytes.Compare(after, res.ConflictEnd) > 0 {
		res.ConflictEnd = after
	}

	selected := make([]domain.KeyValue, ei-bi)
	copy(selected, rows[bi:ei])
	if reverse {
		for i, j := 0, len(selected)-1; i < j; i, j = i+1, j-1 {
			selected[i], selected[j] = selected[j], selected[i]
		}
	}
	if limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}
	res.Rows = selected
	return res
}
