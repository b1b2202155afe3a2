// Package domain holds the call entities: users, participants and rooms.
package domain

import (
	"errors"
)

const MaxUsernameLen = 64

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUnknownRole     = errors.New("unknown role")
)

// UserID is the stable external identity handed in by the client.
type UserID string

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ParseRole accepts an explicit role and falls back to isDoctor when it is empty.
func ParseRole(raw string, isDoctor bool) (Role, error) {
	switch Role(raw) {
	case RolePatient, RoleDoctor, RoleAdmin:
		return Role(raw), nil
	case "":
		if isDoctor {
			return RoleDoctor, nil
		}
		return RolePatient, nil
	default:
		return "", ErrUnknownRole
	}
}

// CleanUsername enforces the display-name length bounds.
func CleanUsername(username string) (string, error) {
	if len(username) == 0 {
		return "", ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return "", ErrUsernameTooLong
	}
	return username, nil
}
