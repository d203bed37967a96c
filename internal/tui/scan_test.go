package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/shelfscan/internal/library"
	"github.com/lepinkainen/shelfscan/internal/metadata"
	"github.com/lepinkainen/shelfscan/internal/scanner"
)

type stubResolver struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubResolver) Resolve(ctx context.Context, isbn string) (library.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, isbn)
	return library.Draft{}, metadata.ErrNotFound
}

type stubBooks struct{}

func (stubBooks) Exists(ctx context.Context, isbn string) (bool, error) {
	return false, nil
}

func (stubBooks) AddScanned(ctx context.Context, draft library.Draft, category string) (library.Book, error) {
	return library.Book{Title: draft.Title}, nil
}

func newTestModel(notifier *ScanNotifier) (scanModel, *stubResolver, *scanner.Pipeline) {
	resolver := &stubResolver{}
	gate := scanner.NewGate(scanner.PolicyStrict, nil)
	pipeline := scanner.NewPipeline(gate, resolver, stubBooks{}, notifier, time.Second)
	return newScanModel(context.Background(), pipeline, notifier), resolver, pipeline
}

func TestScanModelSubmitsInput(t *testing.T) {
	notifier := NewScanNotifier()
	m, resolver, pipeline := newTestModel(notifier)

	m.input.SetValue("9784061530194")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	pipeline.Wait()

	model := updated.(scanModel)
	assert.Equal(t, "", model.input.Value(), "input clears after submit")

	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	assert.Equal(t, []string{"9784061530194"}, resolver.calls)
}

func TestScanModelShowsOutcome(t *testing.T) {
	notifier := NewScanNotifier()
	m, _, _ := newTestModel(notifier)

	updated, _ := m.Update(outcomeMsg(scanner.Success("9784061530194", "Kokoro")))
	model := updated.(scanModel)

	assert.Equal(t, "Added: Kokoro", model.status)
	assert.Equal(t, 1, model.scanned)
	assert.Contains(t, model.View(), "Added: Kokoro")
}

func TestScanModelClearResetsStatus(t *testing.T) {
	notifier := NewScanNotifier()
	m, _, _ := newTestModel(notifier)

	updated, _ := m.Update(outcomeMsg(scanner.NotFound("9784061530194")))
	updated, _ = updated.(scanModel).Update(clearMsg{})
	model := updated.(scanModel)

	assert.Equal(t, "", model.status)
	assert.Contains(t, model.View(), "Ready to scan")
}

func TestScanModelQuits(t *testing.T) {
	notifier := NewScanNotifier()
	m, _, _ := newTestModel(notifier)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	model := updated.(scanModel)

	require.NotNil(t, cmd)
	assert.True(t, model.quitting)
	assert.True(t, strings.Contains(model.View(), "Added 0 books"))
}

func TestRunScanViewUsesProgramSeam(t *testing.T) {
	origRunProgram := runProgram
	defer func() { runProgram = origRunProgram }()

	var ran bool
	runProgram = func(m tea.Model) (tea.Model, error) {
		ran = true
		return m, nil
	}

	notifier := NewScanNotifier()
	_, _, pipeline := newTestModel(notifier)

	err := RunScanView(context.Background(), pipeline, notifier)
	require.NoError(t, err)
	assert.True(t, ran)
}
