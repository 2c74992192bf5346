// Package acl holds the static role to permission matrix.
package acl

import (
	"errors"

	"github.com/aathi-11/university-voting-portal/internal/models"
)

// Action is a protected operation.
type Action string

const (
	CastVote      Action = "cast-vote"
	ViewTally     Action = "view-tally"
	AnnounceTally Action = "announce-tally"
	ListSubjects  Action = "list-subjects"
)

// RoleGuest is what any missing or unrecognised role resolves to.
const RoleGuest = "guest"

// ErrForbidden means the role is authenticated but lacks the action.
var ErrForbidden = errors.New("forbidden: access denied by ACL")

// student votes only; admin runs the election; guest gets nothing.
var matrix = map[string]map[Action]bool{
	models.RoleStudent: {CastVote: true},
	models.RoleAdmin: {
		CastVote:      true,
		ViewTally:     true,
		AnnounceTally: true,
		ListSubjects:  true,
	},
	RoleGuest: {},
}

// IsAllowed reports whether role may perform action. It never fails: unknown
// roles and actions are simply not allowed.
func IsAllowed(role string, action Action) bool {
	return matrix[role][action]
}

// Normalize maps a claimed role onto a known one, defaulting to guest.
func Normalize(role string) string {
	switch role {
	case models.RoleAdmin, models.RoleStudent:
		return role
	}
	return RoleGuest
}

// Permissions lists the actions role may perform.
func Permissions(role string) []Action {
	var out []Action
	for _, a := range []Action{CastVote, ViewTally, AnnounceTally, ListSubjects} {
		if IsAllowed(role, a) {
			out = append(out, a)
		}
	}
	return out
}
