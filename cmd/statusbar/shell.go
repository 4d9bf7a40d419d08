package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"statusbar/internal/status"
)

const usage = `commands:
  info|warn|error|debug <slot> <text...>
  flash <severity> <duration> <slot> <text...>
  clear [slot]
  history
  export
  quit`

var errQuit = errors.New("quit")

// runShell reads one command per line until EOF, quit or ctx is done.
func runShell(ctx context.Context, log *status.Log, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		err := execLine(log, sc.Text(), out)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
	return sc.Err()
}

func execLine(log *status.Log, line string, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, rest := strings.ToLower(fields[0]), fields[1:]

	if sev, ok := status.ParseSeverity(cmd); ok {
		if len(rest) < 2 {
			return fmt.Errorf("usage: %s <slot> <text...>", cmd)
		}
		log.Post(sev, rest[0], textArgs(rest[1:])...)
		return nil
	}

	switch cmd {
	case "flash":
		if len(rest) < 4 {
			return errors.New("usage: flash <severity> <duration> <slot> <text...>")
		}
		sev, ok := status.ParseSeverity(rest[0])
		if !ok {
			return fmt.Errorf("unknown severity %q", rest[0])
		}
		d, err := time.ParseDuration(rest[1])
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", rest[1], err)
		}
		log.Flash(sev, d, rest[2], textArgs(rest[3:])...)
	case "clear":
		if len(rest) == 0 {
			fmt.Fprintf(out, "cleared %d slot(s)\n", log.ClearAll())
			return nil
		}
		if !log.ClearSlot(rest[0]) {
			fmt.Fprintf(out, "slot %q is empty\n", rest[0])
		}
	case "history":
		for _, r := range log.History() {
			fmt.Fprintf(out, "%4d %s %-5s %s: %s\n", r.Seq, r.CreatedAt.Format(time.TimeOnly), r.Severity, r.Category, r.Text)
		}
	case "export":
		out.Write(log.ExportHistory())
		fmt.Fprintln(out)
	case "help", "?":
		fmt.Fprintln(out, usage)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func textArgs(words []string) []any {
	out := make([]any, len(words))
	for i, w := range words {
		out[i] = w
	}
	return out
}
