//go:build !windows
// +build !windows

package colors

// EnableColor enables ANSI coloring. Non-windows terminals are assumed to support ANSI escape codes.
func EnableColor() {
	enabled = true
}
