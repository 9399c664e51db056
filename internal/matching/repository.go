// internal/matching/repository.go

package matching

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetForPair(ctx context.Context, profileA, profileB int64) (*Relationship, error)
	GetAllForProfile(ctx context.Context, profileID int64) ([]*Relationship, error)
	Create(ctx context.Context, rel *Relationship) error
	// UpdateEvaluation persists the per-side states and joint status with an
	// optimistic version check; ErrVersionConflict when a concurrent
	// evaluation won the race.
	UpdateEvaluation(ctx context.Context, rel *Relationship) error
	Delete(ctx context.Context, id int64) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const relationshipColumns = `
	id, profile_1, profile_2, profile1_state, profile2_state, status, version`

func (r *postgresRepository) GetForPair(ctx context.Context, profileA, profileB int64) (*Relationship, error) {
	var rel Relationship
	query := `SELECT` + relationshipColumns + `
		FROM relationships
		WHERE (profile_1 = $1 AND profile_2 = $2)
		   OR (profile_1 = $2 AND profile_2 = $1)`

	err := r.db.GetContext(ctx, &rel, query, profileA, profileB)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship for pair (%d,%d): %w", profileA, profileB, err)
	}
	return &rel, nil
}

func (r *postgresRepository) GetAllForProfile(ctx context.Context, profileID int64) ([]*Relationship, error) {
	var rels []*Relationship
	query := `SELECT` + relationshipColumns + `
		FROM relationships
		WHERE profile_1 = $1 OR profile_2 = $1`

	if err := r.db.SelectContext(ctx, &rels, query, profileID); err != nil {
		return nil, fmt.Errorf("failed to list relationships for profile %d: %w", profileID, err)
	}
	return rels, nil
}

// Create inserts a fresh relationship. The unique index on the normalized
// pair backstops the caller's existence check; a conflicting concurrent
// insert makes this a no-op and the existing row is returned instead.
func (r *postgresRepository) Create(ctx context.Context, rel *Relationship) error {
	query := `
		INSERT INTO relationships (profile_1, profile_2, profile1_state, profile2_state, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (least(profile_1, profile_2), greatest(profile_1, profile_2)) DO NOTHING
		RETURNING id, version
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		rel.Profile1ID, rel.Profile2ID, rel.Profile1State, rel.Profile2State, rel.Status,
	).Scan(&rel.ID, &rel.Version)

	if err == sql.ErrNoRows {
		// Lost a concurrent insert for the same pair; adopt the winner.
		existing, getErr := r.GetForPair(ctx, rel.Profile1ID, rel.Profile2ID)
		if getErr != nil {
			return getErr
		}
		*rel = *existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateEvaluation(ctx context.Context, rel *Relationship) error {
	query := `
		UPDATE relationships
		SET profile1_state = $2, profile2_state = $3, status = $4, version = version + 1
		WHERE id = $1 AND version = $5
	`

	res, err := r.db.ExecContext(ctx, query,
		rel.ID, rel.Profile1State, rel.Profile2State, rel.Status, rel.Version)
	if err != nil {
		return fmt.Errorf("failed to update relationship %d: %w", rel.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of relationship %d: %w", rel.ID, err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	rel.Version++
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete relationship %d: %w", id, err)
	}
	return nil
}
