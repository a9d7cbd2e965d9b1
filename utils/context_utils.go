package utils

import "golang.org/x/net/context"

// CheckContextDone checks if a provided context has indicated it is done, without blocking.
// Returns true if the context was cancelled or its deadline passed.
func CheckContextDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
