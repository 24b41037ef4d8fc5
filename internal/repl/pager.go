package repl

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// page displays output one screen at a time when attached to a terminal.
// Space or Enter for next page, q to quit. Elsewhere it prints everything.
func (r *REPL) page(output string) {
	if !r.interactive {
		r.printf("%s", output)
		return
	}

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	_, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || len(lines) < height {
		r.printf("%s", output)
		return
	}
	// Reserve one line for the prompt.
	pageSize := max(height-1, 1)

	// Raw mode to read single keys.
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		r.printf("%s", output)
		return
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	for lineIdx := 0; lineIdx < len(lines); {
		end := min(lineIdx+pageSize, len(lines))
		for _, l := range lines[lineIdx:end] {
			// Raw mode does not translate newlines.
			r.printf("%s\r\n", l)
		}
		lineIdx = end
		if lineIdx >= len(lines) {
			break
		}

		r.printf("\033[7m -- %d more lines (space/enter: next, q: quit) -- \033[0m", len(lines)-lineIdx)
		buf := make([]byte, 1)
		if _, err := os.Stdin.Read(buf); err != nil {
			return
		}
		r.printf("\r\033[K")
		if buf[0] == 'q' || buf[0] == 'Q' {
			return
		}
	}
}
