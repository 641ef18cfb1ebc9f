package models

import (
	"strings"
	"time"
)

func (u *User) Validate() error {
	if err := validate.Struct(u); err != nil {
		return ValidationFailure("invalid user", err)
	}
	return nil
}

// BeforeCreate normalises identity fields and marks the account active.
func (u *User) BeforeCreate() {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.IsActive = true
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.UpdatedAt = u.CreatedAt
}
