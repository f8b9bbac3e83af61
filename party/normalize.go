package party

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Business suffixes stripped before fuzzy comparison so "Acme Corp" and
// "Acme Corporation LLC" compare on their distinctive part.
var businessSuffixes = []string{
	"incorporated", "corporation", "company", "limited", "holdings",
	"inc", "corp", "llc", "llp", "ltd", "plc", "gmbh", "co",
}

// NormalizeName folds case and collapses whitespace. This is the identity
// used for the exact-name tier and the uniqueness constraint backstop.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), " ")
}

// NormalizeRegistrationID strips punctuation and uppercases, so
// "12-3456789" and "123456789" compare equal.
func NormalizeRegistrationID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// comparableName reduces a normalized name to its distinctive core:
// trailing parenthetical qualifiers ("(formerly X)", "dba ...") and
// business suffixes are removed.
func comparableName(normalized string) string {
	name := normalized
	if idx := strings.Index(name, "("); idx > 0 {
		name = strings.TrimSpace(name[:idx])
	}
	if idx := strings.Index(name, " dba "); idx > 0 {
		name = strings.TrimSpace(name[:idx])
	}

	words := strings.Fields(name)
	for len(words) > 1 {
		last := strings.Trim(words[len(words)-1], ".,")
		stripped := false
		for _, suffix := range businessSuffixes {
			if last == suffix {
				words = words[:len(words)-1]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	if len(words) == 0 {
		return name
	}
	return strings.Join(words, " ")
}

// similarity is a Levenshtein ratio in [0,1] over the comparable forms of
// two normalized names. 1.0 means identical after suffix stripping.
func similarity(a, b string) float64 {
	ca, cb := comparableName(a), comparableName(b)
	if ca == "" && cb == "" {
		return 0
	}
	if ca == cb {
		return 1
	}
	longest := len(ca)
	if len(cb) > longest {
		longest = len(cb)
	}
	dist := levenshtein.ComputeDistance(ca, cb)
	if dist >= longest {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}

// addressOverlap is the share of candidate address tokens present in the
// existing address. Cheap token containment rather than edit distance:
// addresses diverge in layout far more than in vocabulary.
func addressOverlap(candidate, existing string) float64 {
	candTokens := addressTokens(candidate)
	if len(candTokens) == 0 {
		return 0
	}
	existTokens := make(map[string]struct{})
	for _, tok := range addressTokens(existing) {
		existTokens[tok] = struct{}{}
	}
	if len(existTokens) == 0 {
		return 0
	}

	hits := 0
	for _, tok := range candTokens {
		if _, ok := existTokens[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(candTokens))
}

func addressTokens(addr string) []string {
	fields := strings.FieldsFunc(strings.ToLower(addr), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// inferKind guesses organization vs person for the create-new tier. A
// registration id or a recognizable business suffix marks an organization.
func inferKind(c Candidate) Kind {
	if c.KindHint != "" {
		return c.KindHint
	}
	if c.RegistrationID != "" {
		return KindOrganization
	}
	normalized := NormalizeName(c.Name)
	if comparableName(normalized) != normalized {
		return KindOrganization
	}
	return KindPerson
}
