package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/stacktester/internal/presentation/tui"
	"github.com/aretw0/stacktester/pkg/stack"
	"github.com/aretw0/stacktester/pkg/tester"
)

// PrintStack writes one line per item, bottom first, as "index: value".
// Pending values are awaited first.
func PrintStack(ctx context.Context, w io.Writer, items []stack.Item, logger *slog.Logger) error {
	r := tui.NewStackRenderer(w)
	for _, item := range items {
		v, err := tester.Resolve(ctx, item.Value)
		if err != nil {
			return fmt.Errorf("failed to resolve item pushed by instruction %d: %w", item.Index, err)
		}
		if err := r.Line(item.Index, tester.FormatValue(v), kindOf(v)); err != nil {
			return err
		}
	}
	logger.Debug("stack printed", "items", len(items))
	return nil
}

func kindOf(v any) tui.Kind {
	switch {
	case tester.IsSentinel(v):
		return tui.KindSentinel
	case tester.IsEncodedError(v):
		return tui.KindError
	}
	return tui.KindValue
}
