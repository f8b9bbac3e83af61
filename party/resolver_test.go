package party

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo keeps parties in memory and mimics the unique-violation behaviour
// of the real repository so the create-race path is exercisable.
type memRepo struct {
	parties []Party
	roles   []Role
	// conflictOnce simulates a concurrent resolver committing the same
	// party between the read and the insert.
	conflictOnce *Party
}

func (m *memRepo) Create(ctx context.Context, tx pgx.Tx, p Party) (Party, error) {
	if m.conflictOnce != nil {
		winner := *m.conflictOnce
		m.conflictOnce = nil
		m.parties = append(m.parties, winner)
		return Party{}, errDuplicateParty
	}
	for _, existing := range m.parties {
		if existing.Kind == p.Kind && existing.NormalizedName == p.NormalizedName {
			return Party{}, errDuplicateParty
		}
	}
	p.ID = fmt.Sprintf("party-%d", len(m.parties)+1)
	m.parties = append(m.parties, p)
	return p, nil
}

func (m *memRepo) GetByID(ctx context.Context, tx pgx.Tx, id string) (Party, error) {
	for _, p := range m.parties {
		if p.ID == id {
			return p, nil
		}
	}
	return Party{}, ErrNotFound
}

func (m *memRepo) ListForResolution(ctx context.Context, tx pgx.Tx) ([]Party, error) {
	out := make([]Party, len(m.parties))
	copy(out, m.parties)
	return out, nil
}

func (m *memRepo) EnsureRole(ctx context.Context, tx pgx.Tx, partyID, roleName string, userID, contextLabel *string) (Role, error) {
	for _, r := range m.roles {
		if r.PartyID == partyID && r.RoleName == roleName {
			return r, nil
		}
	}
	role := Role{ID: fmt.Sprintf("role-%d", len(m.roles)+1), PartyID: partyID, RoleName: roleName, UserID: userID}
	m.roles = append(m.roles, role)
	return role, nil
}

func seededRepo(parties ...Party) *memRepo {
	repo := &memRepo{}
	for i := range parties {
		p := parties[i]
		if p.ID == "" {
			p.ID = fmt.Sprintf("seed-%d", i+1)
		}
		if p.NormalizedName == "" {
			p.NormalizedName = NormalizeName(p.DisplayName)
		}
		if p.Kind == "" {
			p.Kind = KindOrganization
		}
		repo.parties = append(repo.parties, p)
	}
	return repo
}

func strPtr(s string) *string { return &s }

func TestResolveRegistrationIDBeatsName(t *testing.T) {
	repo := seededRepo(
		Party{DisplayName: "Acme Corp", RegistrationID: strPtr("123456789")},
		Party{DisplayName: "Totally Different Name"},
	)
	resolver := NewResolver(repo, DefaultConfig())

	res, err := resolver.Resolve(context.Background(), nil, Candidate{
		Name:           "Totally Different Name",
		RegistrationID: "12-3456789",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tier)
	assert.True(t, res.Matched)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, "Acme Corp", res.Party.DisplayName)
}

func TestResolveExactNormalizedName(t *testing.T) {
	repo := seededRepo(Party{DisplayName: "Clipboard Health"})
	resolver := NewResolver(repo, DefaultConfig())

	res, err := resolver.Resolve(context.Background(), nil, Candidate{Name: "CLIPBOARD HEALTH"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Tier)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, "Clipboard Health", res.Party.DisplayName)
}

func TestResolveFuzzySuffixVariance(t *testing.T) {
	repo := seededRepo(Party{DisplayName: "Global Tech Solutions LLC"})
	resolver := NewResolver(repo, DefaultConfig())

	res, err := resolver.Resolve(context.Background(), nil, Candidate{Name: "Global Tech Solutions"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Tier)
	assert.GreaterOrEqual(t, res.Confidence, 0.90)
	assert.Equal(t, "Global Tech Solutions LLC", res.Party.DisplayName)
}

func TestResolveAddressDisambiguates(t *testing.T) {
	repo := seededRepo(Party{
		DisplayName: "Northside Plumbing Services",
		Address:     strPtr("45 River Road, Portland, OR 97201"),
	})
	resolver := NewResolver(repo, DefaultConfig())

	// Name alone sits between the floor and the fuzzy threshold; the
	// matching address tips it into a tier-4 accept.
	res, err := resolver.Resolve(context.Background(), nil, Candidate{
		Name:    "Northside Plumbing Servicing",
		Address: "45 River Road, Portland OR",
	})
	require.NoError(t, err)
	if res.Tier == 5 {
		t.Fatalf("expected an address-assisted match, got a new party")
	}
	assert.True(t, res.Matched)
	assert.Equal(t, "Northside Plumbing Services", res.Party.DisplayName)

	// Same name without address evidence must NOT merge at tier 4.
	repo2 := seededRepo(Party{
		DisplayName: "Northside Plumbing Services",
		Address:     strPtr("45 River Road, Portland, OR 97201"),
	})
	resolver2 := NewResolver(repo2, Config{FuzzyThreshold: 0.99, NameFloor: 0.80, AddressFloor: 0.30})
	res2, err := resolver2.Resolve(context.Background(), nil, Candidate{Name: "Northside Plumbing Servicing"})
	require.NoError(t, err)
	assert.Equal(t, 5, res2.Tier)
}

func TestResolveCreatesNewParty(t *testing.T) {
	repo := seededRepo(Party{DisplayName: "Existing Vendor Inc"})
	resolver := NewResolver(repo, DefaultConfig())

	res, err := resolver.Resolve(context.Background(), nil, Candidate{Name: "Acme Corp"})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Tier)
	assert.False(t, res.Matched)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, "Acme Corp", res.Party.DisplayName)
	assert.Equal(t, KindOrganization, res.Party.Kind)
	assert.NotEmpty(t, res.Reason)
}

func TestResolveAlwaysReturnsParty(t *testing.T) {
	resolver := NewResolver(seededRepo(), DefaultConfig())

	for _, name := range []string{"A", "Acme Corp", "léa & söhne gmbh", "12345"} {
		res, err := resolver.Resolve(context.Background(), nil, Candidate{Name: name})
		require.NoError(t, err, "name %q", name)
		require.NotEmpty(t, res.Party.ID, "name %q", name)
	}
}

func TestResolveCreateRaceReresolves(t *testing.T) {
	winner := Party{
		ID:             "winner",
		Kind:           KindOrganization,
		DisplayName:    "Acme Corp",
		NormalizedName: "acme corp",
	}
	repo := seededRepo()
	repo.conflictOnce = &winner
	resolver := NewResolver(repo, DefaultConfig())

	res, err := resolver.Resolve(context.Background(), nil, Candidate{Name: "Acme Corp"})
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "winner", res.Party.ID)
	assert.Equal(t, 2, res.Tier)
}
