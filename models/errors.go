package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrConnectionNotFound  = errors.New("connection not found")
	ErrInvitationExpired   = errors.New("invitation expired")
	ErrAlreadyResponded    = errors.New("invitation was already responded to")
	ErrDuplicateInvitation = errors.New("a pending invitation already exists for this provider")
	ErrNoProviderAccount   = errors.New("no provider account matches this invitation")
	ErrUnknownAction       = errors.New("action must be accept or reject")
	ErrLoginFailed         = errors.New("wrong credentials")
	ErrTotpRequired        = errors.New("one-time code required")
)

// InvalidTransitionError names the exact state/action pair that was refused,
// so callers can explain why the action is unavailable instead of showing a
// generic failure.
type InvalidTransitionError struct {
	Entity string
	From   string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s %s", e.Action, e.From, e.Entity)
}
