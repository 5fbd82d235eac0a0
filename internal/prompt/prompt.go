// Package prompt asks an operator for the fields of a tool, either line by
// line from piped input or with an interactive terminal field.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrAborted means the operator cancelled or the input ended before a
// required answer.
var ErrAborted = errors.New("input aborted")

// Question is one field to ask for.
type Question struct {
	Label       string
	Placeholder string
	Default     string
	Required    bool
}

func (q Question) prompt() string {
	if q.Default != "" {
		return fmt.Sprintf("%s [%s]: ", q.Label, q.Default)
	}
	return q.Label + ": "
}

// answer applies the default and reports whether v is acceptable.
func (q Question) answer(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		v = q.Default
	}
	return v, v != "" || !q.Required
}

// Asker reads one answer per question.
type Asker interface {
	Ask(q Question) (string, error)
}

// LineAsker reads answers one line at a time.
type LineAsker struct {
	in  *bufio.Reader
	out io.Writer
	eof bool
}

// NewLineAsker creates an asker reading from in and prompting on out.
func NewLineAsker(in io.Reader, out io.Writer) *LineAsker {
	return &LineAsker{in: bufio.NewReader(in), out: out}
}

// Ask prints the question and reads a line. Once input is exhausted optional
// questions take their default and required ones fail with ErrAborted.
func (a *LineAsker) Ask(q Question) (string, error) {
	for {
		fmt.Fprint(a.out, q.prompt())

		var line string
		if !a.eof {
			var err error
			line, err = a.in.ReadString('\n')
			if errors.Is(err, io.EOF) {
				a.eof = true
			} else if err != nil {
				return "", fmt.Errorf("reading %s: %w", strings.ToLower(q.Label), err)
			}
		}
		if a.eof && line == "" {
			fmt.Fprintln(a.out)
		}

		v, ok := q.answer(line)
		if ok {
			return v, nil
		}
		if a.eof {
			return "", fmt.Errorf("%s: %w", strings.ToLower(q.Label), ErrAborted)
		}
		fmt.Fprintln(a.out, "  a value is required")
	}
}
