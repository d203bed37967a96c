package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/shelfscan/internal/datastore"
)

// Service exposes the collection operations backed by a record store.
// All mutations are confirm-then-refresh: the store's representation is
// authoritative and callers re-list instead of patching local state.
type Service struct {
	store datastore.Store
	table string
}

// NewService creates a Service on the given store and table
func NewService(store datastore.Store, table string) *Service {
	return &Service{store: store, table: table}
}

// Exists reports whether a book with the given ISBN is already in the
// collection. This is the pipeline's duplicate pre-check; the store's
// unique index remains the authoritative guard.
func (s *Service) Exists(ctx context.Context, isbn string) (bool, error) {
	records, err := s.store.Select(ctx, s.table, datastore.Filter{"isbn": isbn}, "")
	if err != nil {
		return false, fmt.Errorf("duplicate check for %s: %w", isbn, err)
	}
	return len(records) > 0, nil
}

// Add inserts a new book. The category is a pipeline input reflecting
// the user's current selection, empty for none.
func (s *Service) Add(ctx context.Context, input AddInput, category string) (Book, error) {
	record := map[string]any{
		"status": string(StatusUnread),
	}
	if category != "" {
		record["category"] = category
	}

	switch in := input.(type) {
	case ManualTitle:
		record["title"] = string(in)
	case ScannedDraft:
		record["title"] = in.Title
		record["author"] = in.Author
		record["publisher"] = in.Publisher
		record["cover"] = in.Cover
		record["isbn"] = in.ISBN
	default:
		return Book{}, fmt.Errorf("unhandled add input type %T", input)
	}

	stored, err := s.store.Insert(ctx, s.table, record)
	if err != nil {
		return Book{}, err
	}

	book := bookFromRecord(stored)
	slog.Debug("Book added", "id", book.ID, "title", book.Title, "isbn", book.ISBN)
	return book, nil
}

// AddScanned inserts a resolved draft coming out of the scan pipeline
func (s *Service) AddScanned(ctx context.Context, draft Draft, category string) (Book, error) {
	return s.Add(ctx, ScannedDraft(draft), category)
}

// ListOptions filter and order the collection listing
type ListOptions struct {
	Status   Status
	Category string
	Order    string
}

// List returns the collection, newest first unless ordered otherwise
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Book, error) {
	filter := datastore.Filter{}
	if opts.Status != "" {
		if !ValidStatus(opts.Status) {
			return nil, fmt.Errorf("invalid status: %q", opts.Status)
		}
		filter["status"] = string(opts.Status)
	}
	if opts.Category != "" {
		filter["category"] = opts.Category
	}

	order := opts.Order
	if order == "" {
		order = "created_at desc"
	}

	records, err := s.store.Select(ctx, s.table, filter, order)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}

	books := make([]Book, 0, len(records))
	for _, record := range records {
		books = append(books, bookFromRecord(record))
	}
	return books, nil
}

// UpdateStatus changes a book's reading status
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid status: %q", status)
	}
	if err := s.store.Update(ctx, s.table, map[string]any{"status": string(status)}, datastore.Filter{"id": id}); err != nil {
		return fmt.Errorf("updating status of book %d: %w", id, err)
	}
	return nil
}

// SetCategory assigns or clears a book's category label
func (s *Service) SetCategory(ctx context.Context, id int64, category string) error {
	var value any
	if category != "" {
		value = category
	}
	if err := s.store.Update(ctx, s.table, map[string]any{"category": value}, datastore.Filter{"id": id}); err != nil {
		return fmt.Errorf("updating category of book %d: %w", id, err)
	}
	return nil
}

// Remove deletes a book from the collection
func (s *Service) Remove(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, s.table, datastore.Filter{"id": id}); err != nil {
		return fmt.Errorf("deleting book %d: %w", id, err)
	}
	return nil
}
