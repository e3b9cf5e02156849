package models

import (
	"time"

	id "courier/pkg/domain"
	dErrors "courier/pkg/domain-errors"
)

// Fixed caller-facing messages.
const (
	MessageNoAccess         = "You have no access rights to perform current action."
	MessageWrongCredentials = `Provided "email" and "password" combination was not found.`
	ReasonDuplicateIdentity = `User with provided "email" already exists. Use "/sign-in" with your password.`
)

// Principal is a registered user. Identity is normalized and unique.
type Principal struct {
	ID              id.UserID
	Identity        id.Identity
	PasswordHash    string
	AvatarURL       string
	OriginAvatarURL string
	CreatedAt       time.Time
}

// NewPrincipal builds a Principal, enforcing that identity and hash are set.
func NewPrincipal(userID id.UserID, identity id.Identity, passwordHash string, avatar AvatarURLs, createdAt time.Time) (*Principal, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal id is required")
	}
	if identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal identity is required")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal password hash is required")
	}
	return &Principal{
		ID:              userID,
		Identity:        identity,
		PasswordHash:    passwordHash,
		AvatarURL:       avatar.Thumb,
		OriginAvatarURL: avatar.Origin,
		CreatedAt:       createdAt,
	}, nil
}

// Avatar is an uploaded profile image held in memory.
type Avatar struct {
	Filename    string
	ContentType string
	Content     []byte
}

// IsZero reports whether no avatar was uploaded.
func (a *Avatar) IsZero() bool {
	return a == nil || (a.Filename == "" && a.ContentType == "" && len(a.Content) == 0)
}

// AvatarURLs are the public locations of a stored avatar.
type AvatarURLs struct {
	Origin string
	Thumb  string
}

// SignUpRequest carries raw registration input.
type SignUpRequest struct {
	Email    *string
	Password *string
	Avatar   *Avatar
}

type SignUpResult struct {
	Token     string
	AvatarURL string
}

// SignInRequest carries raw login input. Nil fields were absent.
type SignInRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type SignInResult struct {
	Token           string
	Email           string
	AvatarURL       string
	OriginAvatarURL string
}
