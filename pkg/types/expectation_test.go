package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedOutcome(t *testing.T) {
	assert.False(t, Normal().IsKnownFailing())
	assert.Equal(t, "normal", Normal().String())

	kf := KnownFailing("NB#185070")
	assert.True(t, kf.IsKnownFailing())
	assert.Equal(t, "known-failing(NB#185070)", kf.String())
}

func TestVerdict_Breaking(t *testing.T) {
	assert.False(t, VerdictPass.Breaking())
	assert.False(t, VerdictKnownFailure.Breaking())
	for _, v := range []Verdict{VerdictFail, VerdictError, VerdictUnexpectedPass, VerdictSkipped} {
		assert.True(t, v.Breaking(), string(v))
	}
}

func TestMetadata(t *testing.T) {
	m := Metadata{
		PropTitle:   {"nietitletest", "other"},
		KeyTagLabel: {"a", TagLabel},
		"empty":     {},
	}
	v, ok := m.First(PropTitle)
	assert.True(t, ok)
	assert.Equal(t, "nietitletest", v)

	_, ok = m.First("empty")
	assert.False(t, ok)
	_, ok = m.First("missing")
	assert.False(t, ok)

	assert.True(t, m.Contains(KeyTagLabel, TagLabel))
	assert.False(t, m.Contains(KeyTagLabel, "nope"))
}
