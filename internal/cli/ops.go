package cli

import (
	"io"

	"github.com/aretw0/stacktester/internal/presentation/tui"
	"github.com/aretw0/stacktester/pkg/tester"
)

// PrintReference writes the instruction set reference.
func PrintReference(w io.Writer) error {
	return tui.RenderMarkdown(w, tester.ReferenceMarkdown())
}
