package models

import "time"

type User struct {
	ID            string
	PasswordHash  string
	LoginAttempts int
	Locked        bool
	LastLogin     time.Time
	Online        bool
	SessionToken  string
}
