// Package domain holds primitives that are validated once at the trust
// boundary so downstream code can compare them exactly.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "courier/pkg/domain-errors"
	pkgstrings "courier/pkg/platform/strings"
)

// UserID identifies a registered principal.
type UserID uuid.UUID

// NewUserID returns a fresh random principal ID.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID validates s as a non-nil UUID.
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
	}
	if parsed == uuid.Nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
	}
	return UserID(parsed), nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero UUID.
func (id UserID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// Identity is the normalized (trimmed, lowercased) login identity of a
// principal. Two identities are equal iff they denote the same principal.
type Identity string

// NormalizeIdentity lowercases and trims raw. It does not validate shape.
func NormalizeIdentity(raw string) Identity {
	return Identity(strings.ToLower(strings.TrimSpace(raw)))
}

func (i Identity) String() string {
	return string(i)
}

// IsZero reports whether the identity is empty.
func (i Identity) IsZero() bool {
	return i == ""
}

// Handle is an external directory handle such as a GitHub login.
type Handle string

// ParseHandles splits a list of raw handle entries, each of which may itself
// be comma-joined, into trimmed handles. Empty entries are dropped; duplicates
// and order are kept.
func ParseHandles(raw []string) []Handle {
	handles := make([]Handle, 0, len(raw))
	for _, entry := range raw {
		for _, part := range pkgstrings.SplitAndTrim(entry, ",") {
			handles = append(handles, Handle(part))
		}
	}
	return handles
}

// Key is the case-insensitive comparison key of a handle.
func (h Handle) Key() string {
	return strings.ToLower(string(h))
}

func (h Handle) String() string {
	return string(h)
}
