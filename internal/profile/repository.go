// internal/profile/repository.go

package profile

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CandidateQuery narrows the eligible candidate pool for matching.
type CandidateQuery struct {
	AgeMin     int
	AgeMax     int
	ExcludeIDs []int64

	// Gender, when set, requires an exact candidate gender.
	Gender string
	// ExcludePreferred, when set, drops candidates whose own preference
	// equals this value (they would categorically reject the searcher).
	ExcludePreferred string
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Profile, error)
	GetByMobile(ctx context.Context, mobile int64) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	Update(ctx context.Context, p *Profile) error
	FindCandidates(ctx context.Context, q *CandidateQuery) ([]*Profile, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const profileColumns = `
	id, registered, name, age, gender, preferred_gender, description,
	lat, lon, city, state, country, photo, mobile, password_hash`

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Profile, error) {
	var p Profile
	query := `SELECT` + profileColumns + ` FROM profiles WHERE id = $1`

	err := r.db.GetContext(ctx, &p, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %d: %w", id, err)
	}
	return &p, nil
}

func (r *postgresRepository) GetByMobile(ctx context.Context, mobile int64) (*Profile, error) {
	var p Profile
	query := `SELECT` + profileColumns + ` FROM profiles WHERE mobile = $1`

	err := r.db.GetContext(ctx, &p, query, mobile)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by mobile: %w", err)
	}
	return &p, nil
}

func (r *postgresRepository) Create(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO profiles (mobile, password_hash)
		VALUES ($1, $2)
		RETURNING id, registered
	`

	err := r.db.QueryRowxContext(ctx, query, p.Mobile, p.PasswordHash).
		Scan(&p.ID, &p.Registered)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Profile) error {
	query := `
		UPDATE profiles
		SET name = $2, age = $3, gender = $4, preferred_gender = $5,
		    description = $6, lat = $7, lon = $8, city = $9, state = $10,
		    country = $11, photo = $12, password_hash = $13
		WHERE id = $1
	`

	_, err := r.db.ExecContext(
		ctx, query,
		p.ID, p.Name, p.Age, p.Gender, p.PreferredGender,
		p.Description, p.Lat, p.Lon, p.City, p.State,
		p.Country, p.Photo, p.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile %d: %w", p.ID, err)
	}
	return nil
}

// FindCandidates returns filled profiles inside the age band that pass the
// gender rules and are not in the exclusion set.
func (r *postgresRepository) FindCandidates(ctx context.Context, q *CandidateQuery) ([]*Profile, error) {
	query := `SELECT` + profileColumns + `
		FROM profiles
		WHERE name <> '' AND photo <> ''
		  AND age BETWEEN ? AND ?`
	args := []interface{}{q.AgeMin, q.AgeMax}

	if q.Gender != "" {
		query += ` AND gender = ?`
		args = append(args, q.Gender)
	}
	if q.ExcludePreferred != "" {
		query += ` AND preferred_gender <> ?`
		args = append(args, q.ExcludePreferred)
	}
	if len(q.ExcludeIDs) > 0 {
		query += ` AND id NOT IN (?)`
		args = append(args, q.ExcludeIDs)
	}

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build candidate query: %w", err)
	}
	query = r.db.Rebind(query)

	var candidates []*Profile
	if err := r.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	return candidates, nil
}
