package common

import "fmt"

const (
	MinUserIDLen   = 3
	MaxUserIDLen   = 20
	MinPasswordLen = 4
	MaxPasswordLen = 20
)

// ValidateUserID accepts 3 to 20 ASCII letters and digits.
func ValidateUserID(id string) error {
	if len(id) < MinUserIDLen || len(id) > MaxUserIDLen {
		return fmt.Errorf("user id must be %d-%d characters: %w", MinUserIDLen, MaxUserIDLen, ErrorValidation)
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return fmt.Errorf("user id may only contain letters and digits: %w", ErrorValidation)
		}
	}
	return nil
}

func ValidatePassword(pw string) error {
	if len(pw) < MinPasswordLen || len(pw) > MaxPasswordLen {
		return fmt.Errorf("password must be %d-%d characters: %w", MinPasswordLen, MaxPasswordLen, ErrorValidation)
	}
	return nil
}
