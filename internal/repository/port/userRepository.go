package repository

import (
	"context"
	"errors"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
)

// ErrApplicationNotFound is returned when an origin link does not resolve.
var ErrApplicationNotFound = errors.New("repository: application not found")

// UserDirectory is the read side of the identity collaborator: public
// profile summaries and notification preferences.
type UserDirectory interface {
	// Profiles returns the known profiles among userIDs keyed by id.
	Profiles(ctx context.Context, userIDs ...string) (map[string]chat.Profile, error)
	// PushEnabled reports whether the user accepts push notifications.
	// Unknown users default to enabled.
	PushEnabled(ctx context.Context, userID string) (bool, error)
}

// ApplicationLinks resolves an originating job application to the two
// users tied to it.
type ApplicationLinks interface {
	Parties(ctx context.Context, applicationID string) (applicantID, employerID string, err error)
}
