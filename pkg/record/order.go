package record

import (
	"cmp"
	"slices"
	"strconv"
)

// SuffixOrder returns the trailing decimal suffix of a declared name, which is
// how text inputs encode the original ordering of their entries.
// It returns NoOrder when the name has no numeric suffix.
func SuffixOrder(name string) int {
	end := len(name)
	start := end
	for start > 0 && name[start-1] >= '0' && name[start-1] <= '9' {
		start--
	}
	if start == end {
		return NoOrder
	}
	n, err := strconv.Atoi(name[start:end])
	if err != nil {
		return NoOrder
	}
	return n
}

// SortByOrder stably sorts items by their ordering key. Items without a key
// keep their relative position after all keyed items.
func SortByOrder[T any](items []T, order func(T) int) {
	slices.SortStableFunc(items, func(a, b T) int {
		oa, ob := order(a), order(b)
		switch {
		case oa == NoOrder && ob == NoOrder:
			return 0
		case oa == NoOrder:
			return 1
		case ob == NoOrder:
			return -1
		}
		return cmp.Compare(oa, ob)
	})
}

// Rank returns, for every item, its position after SortByOrder. The input
// slice is not modified.
func Rank[T any](items []T, order func(T) int) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	SortByOrder(idx, func(i int) int { return order(items[i]) })
	rank := make([]int, len(items))
	for r, i := range idx {
		rank[i] = r
	}
	return rank
}
