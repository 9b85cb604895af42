// Package setup implements the interactive first-run wizard that writes the
// holidaysync config file and the initial provider list.
package setup

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter reads one answer per line from r and writes prompts to w. The
// wizard runs it on stdin/stdout; tests feed it a strings.Reader.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter creates a Prompter reading answers from r and writing prompts
// to w.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(r), out: w}
}

// ask prints "  label hint: " and returns the trimmed answer. ok is false at
// end of input.
func (p *Prompter) ask(label, hint string) (answer string, ok bool) {
	if hint != "" {
		label += " " + hint
	}
	_, _ = fmt.Fprintf(p.out, "  %s: ", label)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

func (p *Prompter) retry(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, "  ("+format+")\n", args...)
}

// String asks for free text. An empty answer, or end of input, yields
// defaultVal; with no default the question repeats until answered.
func (p *Prompter) String(label, defaultVal string) string {
	hint := ""
	if defaultVal != "" {
		hint = "[" + defaultVal + "]"
	}
	for {
		answer, ok := p.ask(label, hint)
		switch {
		case !ok:
			return defaultVal
		case answer != "":
			return answer
		case defaultVal != "":
			return defaultVal
		}
		p.retry("required, please enter a value")
	}
}

// Secret asks for a credential such as an API key. Input is echoed. When
// optional is false an empty answer repeats the question.
func (p *Prompter) Secret(label string, optional bool) string {
	for {
		answer, ok := p.ask(label, "")
		if !ok || answer != "" || optional {
			return answer
		}
		p.retry("required, please enter a value")
	}
}

// Int asks for a whole number in [lo, hi]. An empty answer, or end of input,
// keeps defaultVal.
func (p *Prompter) Int(label string, defaultVal, lo, hi int) int {
	for {
		answer, ok := p.ask(label, "["+strconv.Itoa(defaultVal)+"]")
		if !ok || answer == "" {
			return defaultVal
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= lo && n <= hi {
			return n
		}
		p.retry("enter a number between %d and %d", lo, hi)
	}
}

// Confirm asks a yes/no question. An empty answer, or end of input, yields
// defaultYes; anything other than y/yes/n/no repeats the question.
func (p *Prompter) Confirm(label string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	for {
		answer, ok := p.ask(label, hint)
		if !ok {
			return defaultYes
		}
		switch strings.ToLower(answer) {
		case "":
			return defaultYes
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		p.retry("answer y or n")
	}
}

// Select lists options under label and returns the zero-based index of the
// one chosen, either by its number or by its name ignoring case.
func (p *Prompter) Select(label string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("select %q: no options", label)
	}

	_, _ = fmt.Fprintf(p.out, "  %s:\n", label)
	for i, opt := range options {
		_, _ = fmt.Fprintf(p.out, "    %d) %s\n", i+1, opt)
	}

	rangeHint := fmt.Sprintf("[1-%d]", len(options))
	for {
		answer, ok := p.ask("Choice", rangeHint)
		if !ok {
			return -1, fmt.Errorf("select %q: no input", label)
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		for i, opt := range options {
			if strings.EqualFold(answer, opt) {
				return i, nil
			}
		}
		p.retry("enter a number between 1 and %d", len(options))
	}
}
