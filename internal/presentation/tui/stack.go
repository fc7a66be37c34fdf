package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Kind classifies a rendered stack value.
type Kind int

const (
	KindValue Kind = iota
	KindError
	KindSentinel
)

// StackRenderer writes stack dumps as "index: value" lines.
type StackRenderer struct {
	w      io.Writer
	out    *termenv.Output
	styled bool
}

// NewStackRenderer creates a renderer that colors its lines when w is a terminal.
func NewStackRenderer(w io.Writer) *StackRenderer {
	r := &StackRenderer{w: w, styled: IsTerminal(w)}
	if r.styled {
		r.out = termenv.NewOutput(w)
	}
	return r
}

// Line writes one stack item.
func (r *StackRenderer) Line(index int, value string, kind Kind) error {
	if !r.styled {
		_, err := fmt.Fprintf(r.w, "%d: %s\n", index, value)
		return err
	}

	idx := r.out.String(fmt.Sprintf("%d:", index)).Foreground(r.out.Color("#818cf8"))
	v := r.out.String(value)
	switch kind {
	case KindError:
		v = v.Foreground(r.out.Color("#fb7185")).Bold()
	case KindSentinel:
		v = v.Foreground(r.out.Color("#a78bfa"))
	}
	_, err := fmt.Fprintf(r.w, "%s %s\n", idx, v)
	return err
}
