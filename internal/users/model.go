package users

import "time"

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	GivenName      string    `json:"given_name"`
	FamilyName     string    `json:"family_name"`
	PictureURL     string    `json:"picture_url"`
	CreditsBalance int       `json:"credits_balance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
