package conveyor

import (
	"slices"

	"github.com/samber/lo"
)

// Indexed tags a payload with its submission index so results can be re-sorted after concurrent
// stages shuffle arrival order.
type Indexed[T any] struct {
	Index int
	Value T
}

// Index tags each item with its position in the slice.
func Index[T any](items []T) []Indexed[T] {
	return lo.Map(items, func(item T, i int) Indexed[T] {
		return Indexed[T]{Index: i, Value: item}
	})
}

// MapIndexed lifts a Transform to operate on tagged payloads, carrying the tag through the stage.
func MapIndexed[In, Out any](fn Transform[In, Out]) Transform[Indexed[In], Indexed[Out]] {
	return func(in Indexed[In]) Indexed[Out] {
		return Indexed[Out]{Index: in.Index, Value: fn(in.Value)}
	}
}

// Reorder sorts tagged results back into submission order and strips the tags.
func Reorder[T any](items []Indexed[T]) []T {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b Indexed[T]) int { return a.Index - b.Index })
	return lo.Map(sorted, func(item Indexed[T], _ int) T { return item.Value })
}
