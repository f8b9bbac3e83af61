package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "clipboard health", NormalizeName("  CLIPBOARD   Health "))
	assert.Equal(t, "acme corp", NormalizeName("Acme\tCorp"))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestNormalizeRegistrationID(t *testing.T) {
	assert.Equal(t, "123456789", NormalizeRegistrationID("12-3456789"))
	assert.Equal(t, "GB999973", NormalizeRegistrationID("gb 999-973"))
	assert.Equal(t, "", NormalizeRegistrationID("--.."))
}

func TestComparableName(t *testing.T) {
	cases := map[string]string{
		"global tech solutions llc":       "global tech solutions",
		"acme corporation":                "acme",
		"acme corp.":                      "acme",
		"initech (formerly initrode)":     "initech",
		"stark industries dba stark labs": "stark industries",
		"llc":                             "llc",
		"jane smith":                      "jane smith",
	}
	for in, want := range cases {
		assert.Equal(t, want, comparableName(in), "input %q", in)
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, similarity("global tech solutions", "global tech solutions llc"), 0.001)
	assert.InDelta(t, 1.0, similarity("acme corp", "acme incorporated"), 0.001)
	assert.Greater(t, similarity("clipbord health", "clipboard health"), 0.90)
	assert.Less(t, similarity("acme corp", "globex corp"), 0.60)
	assert.Equal(t, 0.0, similarity("", ""))
}

func TestAddressOverlap(t *testing.T) {
	full := "123 Main Street, Springfield, IL 62704"
	assert.InDelta(t, 1.0, addressOverlap("123 Main Street Springfield", full), 0.001)
	assert.Greater(t, addressOverlap("Main St Springfield", full), 0.3)
	assert.Equal(t, 0.0, addressOverlap("", full))
	assert.Equal(t, 0.0, addressOverlap("9 Elm Road Dublin", ""))
}

func TestInferKind(t *testing.T) {
	assert.Equal(t, KindOrganization, inferKind(Candidate{Name: "Acme Corp"}))
	assert.Equal(t, KindOrganization, inferKind(Candidate{Name: "Jane Smith", RegistrationID: "12-345"}))
	assert.Equal(t, KindPerson, inferKind(Candidate{Name: "Jane Smith"}))
	assert.Equal(t, KindPerson, inferKind(Candidate{Name: "Acme Corp", KindHint: KindPerson}))
}
