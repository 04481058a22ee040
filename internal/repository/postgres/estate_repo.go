package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"estateadmin/internal/domain"
)

type estateRepository struct {
	DB *sql.DB
}

// NewEstateRepository returns a domain.EstateRepository implemented with
// Postgres. An estate is a single row; collaborators and invites live in
// JSONB columns and are written back whole on Save (last-write-wins).
func NewEstateRepository(db *sql.DB) domain.EstateRepository {
	return &estateRepository{DB: db}
}

func (r *estateRepository) Create(ctx context.Context, e *domain.Estate) error {
	collaborators, invites, err := marshalEmbedded(e)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO estates (owner_id, name, collaborators, invites, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.OwnerID, e.Name, collaborators, invites, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *estateRepository) GetByID(ctx context.Context, id string) (*domain.Estate, error) {
	query := `
		SELECT id, owner_id, name, collaborators, invites, created_at, updated_at
		FROM estates
		WHERE id = $1
	`
	return r.scanEstate(r.DB.QueryRowContext(ctx, query, id))
}

func (r *estateRepository) GetByInviteToken(ctx context.Context, token string) (*domain.Estate, error) {
	match, err := json.Marshal([]map[string]string{{"token": token}})
	if err != nil {
		return nil, err
	}
	query := `
		SELECT id, owner_id, name, collaborators, invites, created_at, updated_at
		FROM estates
		WHERE invites @> $1::jsonb
	`
	return r.scanEstate(r.DB.QueryRowContext(ctx, query, string(match)))
}

func (r *estateRepository) ListByMember(ctx context.Context, userID string) ([]*domain.Estate, error) {
	match, err := json.Marshal([]map[string]string{{"userId": userID}})
	if err != nil {
		return nil, err
	}
	query := `
		SELECT id, owner_id, name, collaborators, invites, created_at, updated_at
		FROM estates
		WHERE owner_id = $1 OR collaborators @> $2::jsonb
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, string(match))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	estates := make([]*domain.Estate, 0)
	for rows.Next() {
		e, err := r.scanEstate(rows)
		if err != nil {
			return nil, err
		}
		estates = append(estates, e)
	}
	return estates, rows.Err()
}

func (r *estateRepository) Save(ctx context.Context, e *domain.Estate) error {
	collaborators, invites, err := marshalEmbedded(e)
	if err != nil {
		return err
	}
	query := `
		UPDATE estates
		SET name = $1, collaborators = $2, invites = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.DB.ExecContext(ctx, query,
		e.Name, collaborators, invites, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *estateRepository) scanEstate(row rowScanner) (*domain.Estate, error) {
	e := &domain.Estate{}
	var collaborators, invites []byte
	err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &collaborators, &invites, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(collaborators) > 0 {
		if err := json.Unmarshal(collaborators, &e.Collaborators); err != nil {
			return nil, fmt.Errorf("unmarshal collaborators: %w", err)
		}
	}
	if len(invites) > 0 {
		if err := json.Unmarshal(invites, &e.Invites); err != nil {
			return nil, fmt.Errorf("unmarshal invites: %w", err)
		}
	}
	return e, nil
}

// marshalEmbedded renders the collaborator and invite collections as JSONB
// values, using empty arrays rather than SQL nulls.
func marshalEmbedded(e *domain.Estate) (collaborators, invites []byte, err error) {
	cols := e.Collaborators
	if cols == nil {
		cols = []domain.Collaborator{}
	}
	collaborators, err = json.Marshal(cols)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal collaborators: %w", err)
	}
	invs := e.Invites
	if invs == nil {
		invs = []domain.Invite{}
	}
	invites, err = json.Marshal(invs)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal invites: %w", err)
	}
	return collaborators, invites, nil
}
