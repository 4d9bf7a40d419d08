package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"statusbar/internal/eventbus"
	"statusbar/internal/status"
)

// RenderLine formats the status bar for a terminal.
func RenderLine(msg status.SlotMessage, ok bool) string {
	if !ok {
		return "status: (idle)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "status: [%s] %s: %s", strings.ToUpper(msg.Severity.String()), msg.Slot, msg.Text)
	if msg.Transient() {
		b.WriteString(" (flash)")
	}
	return b.String()
}

// render prints a line per visibility change, skipping repeats.
func render(ctx context.Context, events <-chan eventbus.Event, out io.Writer) {
	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			vis, isVis := ev.Data.(eventbus.VisibleChanged)
			if ev.Type != eventbus.TypeVisible || !isVis {
				continue
			}
			line := RenderLine(vis.Message, vis.Visible)
			if line == last {
				continue
			}
			last = line
			fmt.Fprintln(out, line)
		}
	}
}
