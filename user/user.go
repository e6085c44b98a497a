package user

import (
	"database/sql"
	"time"
)

// User is the local profile of an identity provider subject. ID is the
// subject claim itself.
type User struct {
	ID        string         `db:"id"`
	Email     sql.NullString `db:"email"`
	Name      sql.NullString `db:"name"`
	Image     sql.NullString `db:"image"`
	CreatedAt time.Time      `db:"created_at"`
}

// Profile is the subset of a user that can be filled from the identity
// provider or edited by the user.
type Profile struct {
	Email string
	Name  string
	Image string
}
