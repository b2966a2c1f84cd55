// Package pool models the fixed universe of ticket numbers of a raffle.
package pool

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidSelection is returned when a requested set of numbers is empty,
// out of range or has duplicates.
var ErrInvalidSelection = errors.New("invalid ticket selection")

// Available returns 0..size-1 minus taken, in ascending order. taken may
// contain numbers outside the pool; they are ignored.
func Available(size int, taken []int) []int {
	if size <= 0 {
		return []int{}
	}
	held := make([]bool, size)
	n := 0
	for _, t := range taken {
		if t >= 0 && t < size && !held[t] {
			held[t] = true
			n++
		}
	}
	out := make([]int, 0, size-n)
	for i := 0; i < size; i++ {
		if !held[i] {
			out = append(out, i)
		}
	}
	return out
}

// ValidateSelection checks a requested set against a pool of the given size
// and returns it sorted. max <= 0 disables the per-purchase cap.
func ValidateSelection(size int, numbers []int, max int) ([]int, error) {
	if len(numbers) == 0 {
		return nil, fmt.Errorf("%w: no ticket numbers requested", ErrInvalidSelection)
	}
	if max > 0 && len(numbers) > max {
		return nil, fmt.Errorf("%w: at most %d tickets per purchase", ErrInvalidSelection, max)
	}
	seen := make(map[int]struct{}, len(numbers))
	for _, n := range numbers {
		if n < 0 || n >= size {
			return nil, fmt.Errorf("%w: number %d outside [0, %d)", ErrInvalidSelection, n, size)
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("%w: number %d requested twice", ErrInvalidSelection, n)
		}
		seen[n] = struct{}{}
	}
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)
	return sorted, nil
}

// Conflicts returns the members of requested that are also in taken, sorted.
func Conflicts(requested, taken []int) []int {
	held := make(map[int]struct{}, len(taken))
	for _, t := range taken {
		held[t] = struct{}{}
	}
	var out []int
	for _, r := range requested {
		if _, ok := held[r]; ok {
			out = append(out, r)
		}
	}
	sort.Ints(out)
	return out
}
