package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lepinkainen/shelfscan/internal/datastore"
	"github.com/lepinkainen/shelfscan/internal/library"
	"github.com/lepinkainen/shelfscan/internal/metadata"
)

// resolver looks up metadata for an admitted ISBN.
type resolver interface {
	Resolve(ctx context.Context, isbn string) (library.Draft, error)
}

// bookAdder is the slice of the library service the pipeline needs.
type bookAdder interface {
	Exists(ctx context.Context, isbn string) (bool, error)
	AddScanned(ctx context.Context, draft library.Draft, category string) (library.Book, error)
}

// coverSaver persists a cover image for a stored book. Optional.
type coverSaver interface {
	Save(ctx context.Context, isbn, url string) (string, error)
}

// Pipeline wires the gate, the metadata resolver and the library
// service into the scan flow: admit synchronously, then resolve and
// persist in the background while the gate holds the lock, and release
// the lock after the cool-down.
type Pipeline struct {
	gate     *Gate
	resolver resolver
	books    bookAdder
	covers   coverSaver
	notifier Notifier
	metrics  *Metrics

	cooldown time.Duration
	category string

	// after schedules the cool-down release; tests replace it to fire
	// the release by hand.
	after func(d time.Duration, f func())

	wg sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCovers makes the pipeline save cover images after a successful add.
func WithCovers(covers coverSaver) Option {
	return func(p *Pipeline) { p.covers = covers }
}

// WithCategory applies a category to every scanned book.
func WithCategory(category string) Option {
	return func(p *Pipeline) { p.category = category }
}

// WithMetrics attaches Prometheus collectors to the pipeline.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a scan pipeline.
func NewPipeline(gate *Gate, r resolver, books bookAdder, notifier Notifier, cooldown time.Duration, opts ...Option) *Pipeline {
	p := &Pipeline{
		gate:     gate,
		resolver: r,
		books:    books,
		notifier: notifier,
		cooldown: cooldown,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleScan feeds one raw scan event into the pipeline. The gate
// decision happens synchronously; everything past it runs in a
// goroutine so the scan source is never blocked on network calls.
func (p *Pipeline) HandleScan(ctx context.Context, raw string) {
	if !p.gate.Admit(raw) {
		p.metrics.IncRejected()
		slog.Debug("Scan rejected", "raw", raw)
		return
	}
	p.metrics.IncAdmitted()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.finish(raw, p.process(ctx, raw))
	}()
}

// process resolves and persists one admitted ISBN and returns its
// terminal outcome.
func (p *Pipeline) process(ctx context.Context, isbn string) Outcome {
	draft, err := p.resolver.Resolve(ctx, isbn)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return NotFound(isbn)
		}
		return Failure(isbn, err)
	}

	exists, err := p.books.Exists(ctx, isbn)
	if err != nil {
		return Failure(isbn, err)
	}
	if exists {
		return Duplicate(isbn, draft.Title)
	}

	book, err := p.books.AddScanned(ctx, draft, p.category)
	if err != nil {
		if errors.Is(err, datastore.ErrConflict) {
			return Duplicate(isbn, draft.Title)
		}
		return Failure(isbn, err)
	}

	if p.covers != nil && draft.Cover != "" {
		if _, err := p.covers.Save(ctx, isbn, draft.Cover); err != nil {
			slog.Warn("Cover download failed", "isbn", isbn, "error", err)
		}
	}

	return Success(isbn, book.Title)
}

// finish announces the outcome and schedules the lock release. The
// release only clears the gate if this ISBN still holds it, a newer
// scan keeps its own lock.
func (p *Pipeline) finish(isbn string, outcome Outcome) {
	p.metrics.IncOutcome(outcome.Kind)
	p.notifier.Announce(outcome)

	p.after(p.cooldown, func() {
		p.gate.Release(isbn)
		p.notifier.Clear()
	})
}

// Run consumes raw scan events until the channel closes or the context
// is cancelled, then waits for in-flight scans to finish.
func (p *Pipeline) Run(ctx context.Context, events <-chan string) {
	for {
		select {
		case raw, ok := <-events:
			if !ok {
				p.wg.Wait()
				return
			}
			p.HandleScan(ctx, raw)
		case <-ctx.Done():
			p.wg.Wait()
			return
		}
	}
}

// Wait blocks until all in-flight scans have reached a terminal outcome.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
