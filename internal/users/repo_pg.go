package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"kritic-backend/internal/credits"
)

type PGRepo struct {
	DB *sql.DB
}

// Upsert records the OAuth identity. A new row starts with the initial
// credit grant; an existing row keeps its balance untouched.
func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, full_name, given_name, family_name, picture_url, credits_balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  full_name = EXCLUDED.full_name,
  given_name = EXCLUDED.given_name,
  family_name = EXCLUDED.family_name,
  picture_url = EXCLUDED.picture_url,
  updated_at = now()`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		nullableString(user.Email),
		nullableString(user.FullName),
		nullableString(user.GivenName),
		nullableString(user.FamilyName),
		nullableString(user.PictureURL),
		credits.InitialGrant,
	)
	return err
}

const userColumns = `id, email, full_name, given_name, family_name, picture_url, credits_balance, created_at, updated_at`

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, userID))
}

func (r *PGRepo) UpdateProfile(ctx context.Context, userID, fullName, pictureURL string) (User, error) {
	const query = `
UPDATE users SET
  full_name = COALESCE($2, full_name),
  picture_url = COALESCE($3, picture_url),
  updated_at = now()
WHERE id = $1
RETURNING ` + userColumns
	return r.scanOne(r.DB.QueryRowContext(ctx, query, userID, nullableString(fullName), nullableString(pictureURL)))
}

func (r *PGRepo) scanOne(row *sql.Row) (User, error) {
	var user User
	var email sql.NullString
	var fullName sql.NullString
	var givenName sql.NullString
	var familyName sql.NullString
	var pictureURL sql.NullString
	var updatedAt sql.NullTime
	err := row.Scan(
		&user.ID,
		&email,
		&fullName,
		&givenName,
		&familyName,
		&pictureURL,
		&user.CreditsBalance,
		&user.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.Email = email.String
	user.FullName = fullName.String
	user.GivenName = givenName.String
	user.FamilyName = familyName.String
	user.PictureURL = pictureURL.String
	if updatedAt.Valid {
		user.UpdatedAt = updatedAt.Time
	} else {
		user.UpdatedAt = time.Now().UTC()
	}
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
