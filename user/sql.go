package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var ErrNotFound = errors.New("user not found")

func (r *Repository) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, getUserQuery, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}
	return &u, nil
}

const getUserQuery = "SELECT id, email, name, image, created_at FROM users WHERE id = $1"

// Exists reports whether a user row is stored for id.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, existsQuery, id)
	return ok, err
}

const existsQuery = "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)"

// EnsureUser creates the user on first sight. An existing row is left as it
// is so that edits made through UpdateProfile survive later logins.
func (r *Repository) EnsureUser(ctx context.Context, id string, p Profile) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, ensureUserQuery, id, p.Email, p.Name, p.Image)
	return &u, err
}

const ensureUserQuery = `
INSERT INTO users (id, email, name, image) VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
RETURNING id, email, name, image, created_at
`

// UpdateProfile changes the email and name of a user. Empty values leave the
// stored field as it is.
func (r *Repository) UpdateProfile(ctx context.Context, id, email, name string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, updateProfileQuery, email, name, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const updateProfileQuery = `
UPDATE users SET email = COALESCE(NULLIF($1, ''), email), name = COALESCE(NULLIF($2, ''), name) WHERE id = $3
RETURNING id, email, name, image, created_at
`
