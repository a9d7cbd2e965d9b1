//go:build windows
// +build windows

package colors

import (
	"os"

	"golang.org/x/sys/windows"
)

// EnableColor will query the console mode of stdout to see whether ANSI escape codes are supported on the Windows
// system, and enable virtual terminal processing if it is not already on.
func EnableColor() {
	var mode uint32
	handle := windows.Handle(os.Stdout.Fd())
	if err := windows.GetConsoleMode(handle, &mode); err != nil {
		enabled = false
		return
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0 {
		enabled = true
		return
	}
	enabled = windows.SetConsoleMode(handle, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil
}
