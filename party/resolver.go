package party

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Config holds the resolver thresholds. They bound how aggressively two
// distinct real-world entities can be merged.
type Config struct {
	// FuzzyThreshold is the minimum name similarity for a standalone fuzzy
	// match (tier 3).
	FuzzyThreshold float64
	// NameFloor is the minimum name similarity for an address-assisted
	// match (tier 4).
	NameFloor float64
	// AddressFloor is the minimum address token overlap for tier 4.
	AddressFloor float64
}

func DefaultConfig() Config {
	return Config{
		FuzzyThreshold: 0.90,
		NameFloor:      0.80,
		AddressFloor:   0.30,
	}
}

// matcher is one resolution tier. Matchers are pure: they inspect the
// candidate against the loaded parties and either claim a match or pass.
type matcher interface {
	tryMatch(candidate Candidate, existing []Party) (*Resolution, bool)
}

// Resolver decides whether an extracted counterparty refers to a known
// Party. Tiers run in order and never backtrack; the first claiming tier
// wins. Tier 5 (create) guarantees Resolve always returns a Party.
type Resolver struct {
	repo  Repository
	tiers []matcher
}

func NewResolver(repo Repository, cfg Config) *Resolver {
	if repo == nil {
		repo = NewRepository()
	}
	return &Resolver{
		repo: repo,
		tiers: []matcher{
			registrationIDMatcher{},
			exactNameMatcher{},
			fuzzyNameMatcher{threshold: cfg.FuzzyThreshold},
			nameAddressMatcher{
				threshold:    cfg.FuzzyThreshold,
				nameFloor:    cfg.NameFloor,
				addressFloor: cfg.AddressFloor,
			},
		},
	}
}

// Resolve returns exactly one Party for any candidate. Tiers 1-4 are
// read-only; only the create fallback writes. Infrastructure failures are
// the only error cases: "no match" is handled by creation, and a lost
// create race is resolved by re-running the tiers against the winner's row.
func (r *Resolver) Resolve(ctx context.Context, tx pgx.Tx, candidate Candidate) (Resolution, error) {
	if candidate.Name == "" && candidate.RegistrationID == "" {
		return Resolution{}, fmt.Errorf("party: resolve requires a name or registration id")
	}

	for attempt := 0; attempt < 2; attempt++ {
		existing, err := r.repo.ListForResolution(ctx, tx)
		if err != nil {
			return Resolution{}, err
		}

		for _, tier := range r.tiers {
			if res, ok := tier.tryMatch(candidate, existing); ok {
				return *res, nil
			}
		}

		res, err := r.createNew(ctx, tx, candidate)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, errDuplicateParty) {
			return Resolution{}, err
		}
		// A concurrent resolver created the same party first; loop once
		// more so a read tier picks up the winner.
	}
	return Resolution{}, fmt.Errorf("party: resolve did not converge for %q", candidate.Name)
}

func (r *Resolver) createNew(ctx context.Context, tx pgx.Tx, candidate Candidate) (Resolution, error) {
	p := Party{
		Kind:           inferKind(candidate),
		DisplayName:    candidate.Name,
		NormalizedName: NormalizeName(candidate.Name),
	}
	if p.DisplayName == "" {
		p.DisplayName = candidate.RegistrationID
		p.NormalizedName = NormalizeName(candidate.RegistrationID)
	}
	if candidate.RegistrationID != "" {
		normalized := NormalizeRegistrationID(candidate.RegistrationID)
		p.RegistrationID = &normalized
	}
	if candidate.Address != "" {
		addr := candidate.Address
		p.Address = &addr
	}

	created, err := r.repo.Create(ctx, tx, p)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{
		Party:      created,
		Matched:    false,
		Confidence: 0,
		Tier:       5,
		Reason:     fmt.Sprintf("no existing party matched %q; created new %s", candidate.Name, created.Kind),
	}, nil
}

// registrationIDMatcher: exact normalized registration id. Registration ids
// are authoritative, so this wins regardless of name similarity.
type registrationIDMatcher struct{}

func (registrationIDMatcher) tryMatch(candidate Candidate, existing []Party) (*Resolution, bool) {
	if candidate.RegistrationID == "" {
		return nil, false
	}
	want := NormalizeRegistrationID(candidate.RegistrationID)
	if want == "" {
		return nil, false
	}
	for _, p := range existing {
		if p.RegistrationID == nil {
			continue
		}
		if NormalizeRegistrationID(*p.RegistrationID) == want {
			return &Resolution{
				Party:      p,
				Matched:    true,
				Confidence: 1.0,
				Tier:       1,
				Reason:     fmt.Sprintf("registration id %s matches %q", want, p.DisplayName),
			}, true
		}
	}
	return nil, false
}

// exactNameMatcher: case/whitespace-folded name equality.
type exactNameMatcher struct{}

func (exactNameMatcher) tryMatch(candidate Candidate, existing []Party) (*Resolution, bool) {
	want := NormalizeName(candidate.Name)
	if want == "" {
		return nil, false
	}
	for _, p := range existing {
		if p.NormalizedName == want {
			return &Resolution{
				Party:      p,
				Matched:    true,
				Confidence: 1.0,
				Tier:       2,
				Reason:     fmt.Sprintf("normalized name matches %q exactly", p.DisplayName),
			}, true
		}
	}
	return nil, false
}

// fuzzyNameMatcher: best similarity ratio at or above the threshold, after
// suffix and parenthetical stripping. Absorbs casing, suffix variance,
// minor typos and dba annotations.
type fuzzyNameMatcher struct {
	threshold float64
}

func (m fuzzyNameMatcher) tryMatch(candidate Candidate, existing []Party) (*Resolution, bool) {
	want := NormalizeName(candidate.Name)
	if want == "" {
		return nil, false
	}

	best, score := bestNameMatch(want, existing)
	if best == nil || score < m.threshold {
		return nil, false
	}
	return &Resolution{
		Party:      *best,
		Matched:    true,
		Confidence: score,
		Tier:       3,
		Reason:     fmt.Sprintf("name similarity %.2f to %q", score, best.DisplayName),
	}, true
}

// nameAddressMatcher: a name score below the fuzzy threshold but above the
// floor is accepted when the supplied address also correlates with the
// stored one. Address disambiguates similarly-named distinct entities.
type nameAddressMatcher struct {
	threshold    float64
	nameFloor    float64
	addressFloor float64
}

func (m nameAddressMatcher) tryMatch(candidate Candidate, existing []Party) (*Resolution, bool) {
	if candidate.Address == "" {
		return nil, false
	}
	want := NormalizeName(candidate.Name)
	if want == "" {
		return nil, false
	}

	best, score := bestNameMatch(want, existing)
	if best == nil || score < m.nameFloor || score >= m.threshold {
		return nil, false
	}
	if best.Address == nil {
		return nil, false
	}

	overlap := addressOverlap(candidate.Address, *best.Address)
	if overlap < m.addressFloor {
		return nil, false
	}
	return &Resolution{
		Party:      *best,
		Matched:    true,
		Confidence: score,
		Tier:       4,
		Reason: fmt.Sprintf("name similarity %.2f to %q corroborated by address overlap %.2f",
			score, best.DisplayName, overlap),
	}, true
}

func bestNameMatch(normalized string, existing []Party) (*Party, float64) {
	var best *Party
	bestScore := 0.0
	for i := range existing {
		score := similarity(normalized, existing[i].NormalizedName)
		if score > bestScore {
			best = &existing[i]
			bestScore = score
		}
	}
	return best, bestScore
}
