package cmd

import "fmt"

// consoleWriter is where reports are printed, replaced in tests to
// capture the output.
var consoleWriter consoleWrapper = &stdoutWrapper{}

type (
	consoleWrapper interface {
		Println(a ...any)
		Print(a ...any)
	}

	stdoutWrapper struct{}
)

func (w *stdoutWrapper) Println(a ...any) {
	fmt.Println(a...)
}

func (w *stdoutWrapper) Print(a ...any) {
	fmt.Print(a...)
}

func printf(format string, a ...any) {
	consoleWriter.Println(fmt.Sprintf(format, a...))
}
