// Package ports declares the external collaborators of the notify pipeline.
// Providers under internal/providers implement them; tests use the gomock
// doubles in ports/mocks.
package ports

import (
	"context"

	id "courier/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks ProfileDirectory,ContextSource,OutboundTransport

// Profile is a resolved directory entry. Email and Location are empty when the
// directory does not expose them.
type Profile struct {
	Handle   id.Handle
	Email    string
	Location string
}

// HasContact reports whether the profile can receive a message.
func (p Profile) HasContact() bool {
	return p.Email != ""
}

// Conditions is the current weather at a place.
type Conditions struct {
	Condition   string  `json:"condition"`
	Temperature float64 `json:"temperature"`
	Place       string  `json:"place"`
}

// Message is one outbound mail.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// ProfileDirectory looks up a single handle. Unknown handles return an error
// matching sentinel.ErrNotFound; any other error is a transport failure.
type ProfileDirectory interface {
	LookupProfile(ctx context.Context, handle id.Handle) (*Profile, error)
}

// ContextSource reports current conditions for a free-form location string.
type ContextSource interface {
	CurrentConditions(ctx context.Context, location string) (*Conditions, error)
}

// OutboundTransport delivers one message.
type OutboundTransport interface {
	Send(ctx context.Context, msg Message) error
}
