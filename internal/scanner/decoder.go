package scanner

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
)

// Decoder reads newline-terminated scan events from a reader, the way
// a USB barcode scanner in keyboard mode delivers them. Each line is
// trimmed and emitted as one raw event.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder wraps a reader in a line decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{scanner: bufio.NewScanner(r)}
}

// Events reads lines until EOF or context cancellation and sends them
// on the returned channel. The channel is closed when the source is
// exhausted.
func (d *Decoder) Events(ctx context.Context) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)
		for d.scanner.Scan() {
			raw := strings.TrimSpace(d.scanner.Text())
			if raw == "" {
				continue
			}
			select {
			case out <- raw:
			case <-ctx.Done():
				return
			}
		}
		if err := d.scanner.Err(); err != nil {
			slog.Error("Scan source read failed", "error", err)
		}
	}()

	return out
}
