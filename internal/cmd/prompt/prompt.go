// Package prompt asks the operator to approve catalog writes on a terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/agentstation/rbxproducts/internal/cmd/output"
	"github.com/agentstation/rbxproducts/pkg/reconciler"
)

// Answer is the operator's response to one approval prompt.
type Answer int

const (
	// AnswerNo declines the change.
	AnswerNo Answer = iota
	// AnswerYes approves the change.
	AnswerYes
	// AnswerAll approves this change and every remaining one.
	AnswerAll
	// AnswerQuit declines this change and every remaining one.
	AnswerQuit
)

// Prompter reads answers from in and writes questions to out.
type Prompter struct {
	reader      *bufio.Reader
	out         io.Writer
	interactive bool

	// sticky is set once the operator answers "all" or "quit".
	sticky *Answer
}

// New creates a Prompter. When in is a file that is not a terminal, every
// question is answered "no" without being shown.
func New(in io.Reader, out io.Writer) *Prompter {
	interactive := true
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Prompter{reader: bufio.NewReader(in), out: out, interactive: interactive}
}

// Stdin returns a Prompter reading stdin and writing to stderr.
func Stdin() *Prompter {
	return New(os.Stdin, os.Stderr)
}

// Interactive reports whether questions reach a person.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// YesNo asks a y/N question. Anything but "y" or "yes" is a no.
func (p *Prompter) YesNo(question string) bool {
	if !p.interactive {
		return false
	}
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	switch p.read() {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Approve shows a planned create or update and asks whether to apply it.
func (p *Prompter) Approve(op reconciler.Operation) bool {
	if !p.interactive {
		return false
	}
	if p.sticky != nil {
		return *p.sticky == AnswerAll
	}

	fmt.Fprintf(p.out, "\n%s %s %q\n", strings.ToUpper(string(op.Kind)), op.Category.Title(), op.Key)
	if id := op.RecordID(); id != 0 {
		fmt.Fprintf(p.out, "  id: %d\n", id)
	}
	if changes := output.Changes(op); changes != "" {
		fmt.Fprintf(p.out, "  %s\n", changes)
	}
	fmt.Fprint(p.out, "Apply this change? [y/N/a(ll)/q(uit)] ")

	answer := parse(p.read())
	switch answer {
	case AnswerAll, AnswerQuit:
		p.sticky = &answer
	}
	return answer == AnswerYes || answer == AnswerAll
}

func (p *Prompter) read() string {
	line, err := p.reader.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(line))
}

func parse(s string) Answer {
	switch s {
	case "y", "yes":
		return AnswerYes
	case "a", "all":
		return AnswerAll
	case "q", "quit":
		return AnswerQuit
	default:
		return AnswerNo
	}
}
