package party

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound = errors.New("party: not found")
	// errDuplicateParty signals the create-new tier lost a race to a
	// concurrent resolver; the caller re-resolves instead of failing.
	errDuplicateParty = errors.New("party: duplicate party")
)

type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, p Party) (Party, error)
	GetByID(ctx context.Context, tx pgx.Tx, id string) (Party, error)
	ListForResolution(ctx context.Context, tx pgx.Tx) ([]Party, error)
	EnsureRole(ctx context.Context, tx pgx.Tx, partyID, roleName string, userID, contextLabel *string) (Role, error)
}

type PGRepository struct{}

func NewRepository() *PGRepository {
	return &PGRepository{}
}

const partyColumns = `id, kind::text, display_name, normalized_name, registration_id,
       address, email, phone, metadata, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, p Party) (Party, error) {
	if p.DisplayName == "" {
		return Party{}, fmt.Errorf("party: empty display name")
	}
	if p.NormalizedName == "" {
		p.NormalizedName = NormalizeName(p.DisplayName)
	}
	if p.Kind == "" {
		p.Kind = KindOrganization
	}

	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	body, err := json.Marshal(metadata)
	if err != nil {
		return Party{}, fmt.Errorf("party: marshal metadata: %w", err)
	}

	// DO NOTHING keeps the caller's transaction usable when a concurrent
	// resolver created the same party first; a raised 23505 would abort it
	// and make the re-resolve pass impossible.
	const query = `
INSERT INTO parties (kind, display_name, normalized_name, registration_id, address, email, phone, metadata)
VALUES ($1::party_kind, $2, $3, $4, $5, $6, $7, $8::jsonb)
ON CONFLICT DO NOTHING
RETURNING ` + partyColumns

	created, err := scanParty(tx.QueryRow(ctx, query,
		p.Kind,
		p.DisplayName,
		p.NormalizedName,
		p.RegistrationID,
		p.Address,
		p.Email,
		p.Phone,
		body,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Party{}, errDuplicateParty
		}
		return Party{}, fmt.Errorf("party: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetByID(ctx context.Context, tx pgx.Tx, id string) (Party, error) {
	const query = `SELECT ` + partyColumns + ` FROM parties WHERE id = $1`

	p, err := scanParty(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Party{}, ErrNotFound
		}
		return Party{}, fmt.Errorf("party: get by id: %w", err)
	}
	return p, nil
}

// ListForResolution loads the parties the matcher tiers compare against.
func (r *PGRepository) ListForResolution(ctx context.Context, tx pgx.Tx) ([]Party, error) {
	const query = `SELECT ` + partyColumns + ` FROM parties ORDER BY created_at ASC`

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("party: list for resolution: %w", err)
	}
	defer rows.Close()

	parties := make([]Party, 0, 32)
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("party: scan: %w", err)
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("party: iterate: %w", err)
	}
	return parties, nil
}

// EnsureRole returns the existing (party, role, user) row or creates it.
func (r *PGRepository) EnsureRole(ctx context.Context, tx pgx.Tx, partyID, roleName string, userID, contextLabel *string) (Role, error) {
	if partyID == "" {
		return Role{}, fmt.Errorf("party: ensure role missing party id")
	}
	if roleName == "" {
		return Role{}, fmt.Errorf("party: ensure role missing role name")
	}

	const roleColumns = `id, party_id, role_name, user_id, context_label, created_at`

	const selectSQL = `
SELECT ` + roleColumns + `
FROM roles
WHERE party_id = $1 AND role_name = $2
  AND COALESCE(user_id, '00000000-0000-0000-0000-000000000000'::uuid) =
      COALESCE($3::uuid, '00000000-0000-0000-0000-000000000000'::uuid)`

	role, err := scanRole(tx.QueryRow(ctx, selectSQL, partyID, roleName, userID))
	switch {
	case err == nil:
		return role, nil
	case errors.Is(err, pgx.ErrNoRows):
		// fall through to insert
	default:
		return Role{}, fmt.Errorf("party: get role: %w", err)
	}

	const insertSQL = `
INSERT INTO roles (party_id, role_name, user_id, context_label)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING
RETURNING ` + roleColumns

	role, err = scanRole(tx.QueryRow(ctx, insertSQL, partyID, roleName, userID, contextLabel))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			role, err = scanRole(tx.QueryRow(ctx, selectSQL, partyID, roleName, userID))
			if err != nil {
				return Role{}, fmt.Errorf("party: reread role after conflict: %w", err)
			}
			return role, nil
		}
		return Role{}, fmt.Errorf("party: insert role: %w", err)
	}
	return role, nil
}

func scanParty(row pgx.Row) (Party, error) {
	var p Party
	return p, row.Scan(
		&p.ID,
		&p.Kind,
		&p.DisplayName,
		&p.NormalizedName,
		&p.RegistrationID,
		&p.Address,
		&p.Email,
		&p.Phone,
		&p.Metadata,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	return role, row.Scan(
		&role.ID,
		&role.PartyID,
		&role.RoleName,
		&role.UserID,
		&role.ContextLabel,
		&role.CreatedAt,
	)
}
