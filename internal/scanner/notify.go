package scanner

import (
	"fmt"
	"log/slog"
)

// OutcomeKind classifies how a scan ended.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeDuplicate
	OutcomeNotFound
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// Outcome is the terminal result of one admitted scan.
type Outcome struct {
	Kind  OutcomeKind
	ISBN  string
	Title string
	Err   error
}

func Success(isbn, title string) Outcome {
	return Outcome{Kind: OutcomeSuccess, ISBN: isbn, Title: title}
}

func Duplicate(isbn, title string) Outcome {
	return Outcome{Kind: OutcomeDuplicate, ISBN: isbn, Title: title}
}

func NotFound(isbn string) Outcome {
	return Outcome{Kind: OutcomeNotFound, ISBN: isbn}
}

func Failure(isbn string, err error) Outcome {
	return Outcome{Kind: OutcomeError, ISBN: isbn, Err: err}
}

// Message renders the outcome as a user-facing status line.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeSuccess:
		return fmt.Sprintf("Added: %s", o.Title)
	case OutcomeDuplicate:
		return fmt.Sprintf("Already in library: %s", o.Title)
	case OutcomeNotFound:
		return fmt.Sprintf("No metadata found for %s", o.ISBN)
	default:
		return fmt.Sprintf("Scan failed: %v", o.Err)
	}
}

// Notifier receives terminal outcomes and the end-of-cooldown signal.
type Notifier interface {
	Announce(outcome Outcome)
	Clear()
}

// LogNotifier reports outcomes through the structured logger.
type LogNotifier struct{}

func (LogNotifier) Announce(outcome Outcome) {
	switch outcome.Kind {
	case OutcomeSuccess:
		slog.Info("Book added", "isbn", outcome.ISBN, "title", outcome.Title)
	case OutcomeDuplicate:
		slog.Info("Already in library", "isbn", outcome.ISBN, "title", outcome.Title)
	case OutcomeNotFound:
		slog.Warn("No metadata found", "isbn", outcome.ISBN)
	default:
		slog.Error("Scan failed", "isbn", outcome.ISBN, "error", outcome.Err)
	}
}

func (LogNotifier) Clear() {
	slog.Debug("Ready for next scan")
}
