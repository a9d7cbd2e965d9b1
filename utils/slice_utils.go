package utils

// SliceSelect provides a way of querying a specific element from a slice's elements into a slice of its own.
func SliceSelect[T any, K any](x []T, f func(x T) K) []K {
	r := make([]K, len(x))
	for i := 0; i < len(x); i++ {
		r[i] = f(x[i])
	}
	return r
}

// SliceDeduplicate returns a new slice containing the elements of x with duplicates removed. The first occurrence of
// each element is kept, so the relative order of x is preserved.
func SliceDeduplicate[T comparable](x []T) []T {
	seen := make(map[T]struct{}, len(x))
	r := make([]T, 0, len(x))
	for _, item := range x {
		if _, exists := seen[item]; exists {
			continue
		}
		seen[item] = struct{}{}
		r = append(r, item)
	}
	return r
}
