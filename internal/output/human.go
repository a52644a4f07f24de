package output

import (
	"fmt"
	"io"
)

// Status line prefixes for human-readable output.
const (
	OKMark   = "✅"
	FailMark = "❌"
)

// OK writes "✅ <message>".
func OK(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, OKMark+" "+format+"\n", args...)
}

// Fail writes "❌ <error message>".
func Fail(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "%s %s\n", FailMark, err.Error())
}

// Line writes an indented detail line under a status line.
func Line(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "   "+format+"\n", args...)
}
