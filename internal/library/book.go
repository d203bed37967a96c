// Package library holds the book collection model and the store-backed
// operations on it.
package library

import (
	"fmt"
	"time"
)

// Status tracks reading progress of a book
type Status string

const (
	StatusUnread   Status = "unread"
	StatusReading  Status = "reading"
	StatusFinished Status = "finished"
)

// ValidStatus reports whether s is one of the known statuses
func ValidStatus(s Status) bool {
	switch s {
	case StatusUnread, StatusReading, StatusFinished:
		return true
	}
	return false
}

// Draft is a normalized, provider-agnostic bibliographic record
// produced by the metadata resolver. Never mutated after creation.
type Draft struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	Cover     string `json:"cover"`
	ISBN      string `json:"isbn"`
}

// Book is the persisted entity: draft fields plus store-assigned
// id/created_at and user-managed status/category.
type Book struct {
	ID        int64     `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Author    string    `json:"author" yaml:"author"`
	Publisher string    `json:"publisher" yaml:"publisher"`
	Cover     string    `json:"cover" yaml:"cover"`
	ISBN      string    `json:"isbn" yaml:"isbn"`
	Status    Status    `json:"status" yaml:"status"`
	Category  string    `json:"category,omitempty" yaml:"category,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// AddInput is the tagged payload for adding a book: either a bare
// title typed by the user or a draft coming out of the scan pipeline.
type AddInput interface {
	isAddInput()
}

// ManualTitle adds a book by title only
type ManualTitle string

// ScannedDraft adds a book from a resolved scan
type ScannedDraft Draft

func (ManualTitle) isAddInput()  {}
func (ScannedDraft) isAddInput() {}

// bookFromRecord converts a generic store record into a Book,
// tolerating the type differences between backends.
func bookFromRecord(record map[string]any) Book {
	return Book{
		ID:        asInt64(record["id"]),
		Title:     asString(record["title"]),
		Author:    asString(record["author"]),
		Publisher: asString(record["publisher"]),
		Cover:     asString(record["cover"]),
		ISBN:      asString(record["isbn"]),
		Status:    Status(asString(record["status"])),
		Category:  asString(record["category"]),
		CreatedAt: asTime(record["created_at"]),
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func asTime(v any) time.Time {
	switch ts := v.(type) {
	case time.Time:
		return ts
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, ts); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
