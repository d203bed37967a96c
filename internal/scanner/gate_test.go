package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("strict")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	p, err = ParsePolicy("loose")
	require.NoError(t, err)
	assert.Equal(t, PolicyLoose, p)

	_, err = ParsePolicy("fuzzy")
	assert.Error(t, err)
}

func TestPolicyStrictValidation(t *testing.T) {
	g := NewGate(PolicyStrict, nil)

	assert.True(t, g.Admit("9784061530194"))
	g.Release("9784061530194")

	assert.True(t, g.Admit("9790000000000"), "979 prefix is a valid strict ISBN")
	g.Release("9790000000000")

	assert.False(t, g.Admit("978406153019"), "12 digits is too short")
	assert.False(t, g.Admit("97840615301945"), "14 digits is too long")
	assert.False(t, g.Admit("9774061530194"), "977 prefix is not a book")
	assert.False(t, g.Admit("978406153019X"))
	assert.False(t, g.Admit(""))
}

func TestPolicyLooseValidation(t *testing.T) {
	g := NewGate(PolicyLoose, nil)

	assert.True(t, g.Admit("978406153019"), "loose accepts short 978 digit runs")
	g.Release("978406153019")

	assert.False(t, g.Admit("9790000000000"), "loose still requires the 978 prefix")
	assert.False(t, g.Admit("978"), "prefix alone has no payload digits")
}

func TestGateRejectsRepeatWhileLocked(t *testing.T) {
	g := NewGate(PolicyStrict, nil)

	assert.True(t, g.Admit("9784061530194"))
	assert.False(t, g.Admit("9784061530194"), "repeat of the locked ISBN is debounced")
	assert.Equal(t, "9784061530194", g.Locked())
}

func TestGateDifferentISBNTakesOver(t *testing.T) {
	g := NewGate(PolicyStrict, nil)

	require.True(t, g.Admit("9784061530194"))
	assert.True(t, g.Admit("9784101001548"), "a different valid ISBN re-locks immediately")
	assert.Equal(t, "9784101001548", g.Locked())
}

func TestGateReleaseKeyedByISBN(t *testing.T) {
	g := NewGate(PolicyStrict, nil)

	require.True(t, g.Admit("9784061530194"))
	require.True(t, g.Admit("9784101001548"))

	// the first scan's cool-down fires after the takeover; it must not
	// unlock the newer scan
	g.Release("9784061530194")
	assert.Equal(t, "9784101001548", g.Locked())

	g.Release("9784101001548")
	assert.Equal(t, "", g.Locked())
}

func TestGateRearmsAfterRelease(t *testing.T) {
	g := NewGate(PolicyStrict, nil)

	require.True(t, g.Admit("9784061530194"))
	g.Release("9784061530194")
	assert.True(t, g.Admit("9784061530194"), "same ISBN is admitted again once released")
}

type countingBeeper struct {
	beeps int
}

func (b *countingBeeper) Beep() error {
	b.beeps++
	return nil
}

func TestGateBeepsOnAdmitOnly(t *testing.T) {
	beeper := &countingBeeper{}
	g := NewGate(PolicyStrict, beeper)

	g.Admit("9784061530194")
	g.Admit("9784061530194")
	g.Admit("not-an-isbn")

	assert.Equal(t, 1, beeper.beeps)
}
