package service

import (
	"errors"

	"github.com/aathi-11/university-voting-portal/internal/store"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCodeInvalid        = errors.New("one-time code invalid or expired")
	ErrUnauthenticated    = errors.New("missing, invalid or expired session token")
	ErrMissingCandidate   = errors.New("candidate required")
	ErrDeliveryFailed     = errors.New("one-time code could not be delivered")

	ErrDuplicateIdentifier = store.ErrDuplicateSubject
	ErrSubjectNotFound     = store.ErrSubjectNotFound
	ErrAlreadyVoted        = store.ErrAlreadyVoted

	ErrIntegrity = util.ErrIntegrity
	ErrFormat    = util.ErrFormat
)
