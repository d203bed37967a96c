package metadata

import (
	"context"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lepinkainen/shelfscan/internal/library"
)

// Sentinels for fields the fallback provider could not supply
const (
	UnknownTitle     = "title unknown"
	UnknownAuthor    = "author unknown"
	UnknownPublisher = "publisher unknown"
)

const recentDraftsSize = 128

// primaryLookup and fallbackLookup are the provider seams; the real
// clients and test fakes both satisfy them.
type primaryLookup interface {
	Lookup(ctx context.Context, isbn string) (*OpenBDSummary, error)
}

type fallbackLookup interface {
	Lookup(ctx context.Context, isbn string) (*VolumeInfo, error)
}

// Resolver turns an admitted ISBN into a book draft. The primary
// catalog is authoritative when it has a record; the fallback is only
// consulted on a primary miss.
type Resolver struct {
	primary  primaryLookup
	fallback fallbackLookup
	recent   *lru.Cache[string, library.Draft]
}

// NewResolver creates a Resolver with the configured provider clients
func NewResolver() *Resolver {
	return newResolver(NewOpenBDClient(), NewGoogleBooksClient())
}

func newResolver(primary primaryLookup, fallback fallbackLookup) *Resolver {
	recent, _ := lru.New[string, library.Draft](recentDraftsSize)
	return &Resolver{
		primary:  primary,
		fallback: fallback,
		recent:   recent,
	}
}

// Resolve looks up an ISBN and returns a normalized draft. It returns
// ErrNotFound when neither provider has a record and a *ProviderError
// on network or parse failure; lookups are not retried.
func (r *Resolver) Resolve(ctx context.Context, isbn string) (library.Draft, error) {
	if draft, ok := r.recent.Get(isbn); ok {
		slog.Debug("Draft served from recent lookups", "isbn", isbn)
		return draft, nil
	}

	summary, err := r.primary.Lookup(ctx, isbn)
	if err != nil {
		return library.Draft{}, &ProviderError{Provider: "openBD", Err: err}
	}
	if summary != nil {
		draft := draftFromSummary(isbn, summary)
		r.recent.Add(isbn, draft)
		return draft, nil
	}

	volume, err := r.fallback.Lookup(ctx, isbn)
	if err != nil {
		return library.Draft{}, &ProviderError{Provider: "Google Books", Err: err}
	}
	if volume == nil {
		return library.Draft{}, ErrNotFound
	}

	draft := draftFromVolume(isbn, volume)
	r.recent.Add(isbn, draft)
	return draft, nil
}

// draftFromSummary maps the primary provider's summary directly onto a
// draft; field names pass through almost unchanged.
func draftFromSummary(isbn string, summary *OpenBDSummary) library.Draft {
	return library.Draft{
		Title:     summary.Title,
		Author:    summary.Author,
		Publisher: summary.Publisher,
		Cover:     secureURL(summary.Cover),
		ISBN:      isbn,
	}
}

// draftFromVolume normalizes a fallback volume, substituting sentinels
// for absent fields.
func draftFromVolume(isbn string, volume *VolumeInfo) library.Draft {
	title := volume.Title
	if title == "" {
		title = UnknownTitle
	}

	author := strings.Join(volume.Authors, ", ")
	if author == "" {
		author = UnknownAuthor
	}

	publisher := volume.Publisher
	if publisher == "" {
		publisher = UnknownPublisher
	}

	cover := volume.ImageLinks.Thumbnail
	if cover == "" {
		cover = volume.ImageLinks.SmallThumbnail
	}

	return library.Draft{
		Title:     title,
		Author:    author,
		Publisher: publisher,
		Cover:     secureURL(cover),
		ISBN:      isbn,
	}
}

// secureURL upgrades an insecure image URL to https. Empty input stays
// empty.
func secureURL(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
