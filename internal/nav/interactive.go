package nav

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Interactive reads selections from a terminal. Each frame is printed as a
// numbered list; the user answers with a number or an action id. Empty input
// re-prompts, EOF ends the session.
type Interactive struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

// NewInteractive creates a terminal answer source.
func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{In: in, Out: out, reader: bufio.NewReader(in)}
}

func (i *Interactive) Next(f Frame) (string, error) {
	for {
		fmt.Fprintf(i.Out, "\n%s\n", f.Title)
		for n, a := range f.Actions {
			fmt.Fprintf(i.Out, "  %d) %s\n", n+1, a.Label)
		}
		fmt.Fprint(i.Out, "> ")

		line, err := i.reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read selection: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if n, err := strconv.Atoi(line); err == nil {
			if n >= 1 && n <= len(f.Actions) {
				return f.Actions[n-1].ID, nil
			}
			fmt.Fprintf(i.Out, "pick a number between 1 and %d\n", len(f.Actions))
			continue
		}
		for _, a := range f.Actions {
			if strings.EqualFold(a.ID, line) {
				return a.ID, nil
			}
		}
		fmt.Fprintf(i.Out, "unknown choice %q\n", line)
	}
}
