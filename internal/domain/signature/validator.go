// Package signature checks that an approval action carries the actor's identity marker
// and, for negative actions, a justification.
package signature

import (
	"errors"
	"strings"
)

var (
	// ErrMissingSignature is returned when an action carries no digital signature
	ErrMissingSignature = errors.New("digital signature is required")

	// ErrMissingComments is returned when a negative action carries no justification
	ErrMissingComments = errors.New("comments are required for this action")
)

// Request is the part of an approval action the validator inspects
type Request struct {
	Signature       string
	Comments        string
	RequireComments bool
}

// Validate checks the signature first, then the comments.
func Validate(req Request) error {
	if strings.TrimSpace(req.Signature) == "" {
		return ErrMissingSignature
	}
	if req.RequireComments && strings.TrimSpace(req.Comments) == "" {
		return ErrMissingComments
	}
	return nil
}
