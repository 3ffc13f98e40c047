// Package llm holds helpers shared by the language model adapters.
package llm

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// maxLineSize bounds a single streamed line.
const maxLineSize = 1 << 20

// Emit sends c on ch unless ctx is done first. It reports whether c was sent.
func Emit(ctx context.Context, ch chan<- driven.StreamChunk, c driven.StreamChunk) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- c:
		return true
	}
}

// ReadLines calls fn for every non-empty line of r until fn returns false,
// r is exhausted or ctx is done.
func ReadLines(ctx context.Context, r io.Reader, fn func(line string) (more bool, err error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		more, err := fn(line)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return scanner.Err()
}

// ReadSSE parses a server-sent event stream and calls fn with each event's
// name and data payload. Comment lines and retry hints are ignored.
func ReadSSE(ctx context.Context, r io.Reader, fn func(event, data string) (more bool, err error)) error {
	var event string
	return ReadLines(ctx, r, func(line string) (bool, error) {
		switch {
		case strings.HasPrefix(line, ":"):
			return true, nil
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			return true, nil
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			more, err := fn(event, data)
			event = ""
			return more, err
		default:
			return true, nil
		}
	})
}
