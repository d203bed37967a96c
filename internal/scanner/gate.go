package scanner

import (
	"fmt"
	"regexp"
	"sync"
)

// Policy decides which raw scan lines count as ISBNs worth processing.
type Policy int

const (
	// PolicyStrict accepts exactly 13 digits with a 978 or 979 prefix.
	PolicyStrict Policy = iota
	// PolicyLoose accepts any digit string starting with 978.
	PolicyLoose
)

var (
	strictISBN = regexp.MustCompile(`^97[89]\d{10}$`)
	looseISBN  = regexp.MustCompile(`^978\d+$`)
)

// ParsePolicy maps a config string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "strict", "":
		return PolicyStrict, nil
	case "loose":
		return PolicyLoose, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown scan policy %q", s)
	}
}

func (p Policy) match(raw string) bool {
	if p == PolicyLoose {
		return looseISBN.MatchString(raw)
	}
	return strictISBN.MatchString(raw)
}

// Beeper gives audible feedback when a scan is accepted. Failures are
// ignored, a missing beep never blocks the pipeline.
type Beeper interface {
	Beep() error
}

// TerminalBeeper rings the terminal bell.
type TerminalBeeper struct{}

func (TerminalBeeper) Beep() error {
	_, err := fmt.Print("\a")
	return err
}

// Gate admits or rejects raw scan events. At most one ISBN is locked
// at a time; a locked gate rejects repeats of the same ISBN until the
// cool-down releases it, while a different valid ISBN takes the lock
// over immediately.
type Gate struct {
	mu     sync.Mutex
	locked string
	policy Policy
	beeper Beeper
}

// NewGate creates an unlocked gate with the given validation policy.
func NewGate(policy Policy, beeper Beeper) *Gate {
	return &Gate{policy: policy, beeper: beeper}
}

// Admit validates a raw scan line and tries to take the lock for it.
// It returns false when the line is not a valid ISBN under the policy
// or when that same ISBN already holds the lock.
func (g *Gate) Admit(raw string) bool {
	if !g.policy.match(raw) {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.locked == raw {
		return false
	}
	g.locked = raw

	if g.beeper != nil {
		_ = g.beeper.Beep()
	}
	return true
}

// Release clears the lock, but only if isbn still holds it. A newer
// scan that took the lock over keeps it.
func (g *Gate) Release(isbn string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.locked == isbn {
		g.locked = ""
	}
}

// Locked reports the ISBN currently holding the lock, empty when idle.
func (g *Gate) Locked() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked
}
