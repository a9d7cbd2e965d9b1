package colors

import "fmt"

// ColorFunc is an alias type for a coloring function that accepts anything and returns a colorized string
type ColorFunc = func(s any) string

// Reset is a ColorFunc that simply returns the input as a string. It is used to end the color context of a previous
// ColorFunc within a log message.
func Reset(s any) string {
	return fmt.Sprintf("%v", s)
}

// The ColorFuncs used by console log output. Combined colors apply their codes in order, outermost last.
var (
	Bold       = newColorFunc(BOLD)
	RedBold    = newColorFunc(RED, BOLD)
	GreenBold  = newColorFunc(GREEN, BOLD)
	Yellow     = newColorFunc(YELLOW)
	YellowBold = newColorFunc(YELLOW, BOLD)
	BlueBold   = newColorFunc(BLUE, BOLD)
	CyanBold   = newColorFunc(CYAN, BOLD)
)

// newColorFunc returns a ColorFunc which wraps its input in each of the provided codes.
func newColorFunc(codes ...Color) ColorFunc {
	return func(s any) string {
		out := fmt.Sprintf("%v", s)
		for _, c := range codes {
			out = Colorize(out, c)
		}
		return out
	}
}
