package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// UserRef is an immutable reference to a user of the office.
type UserRef struct {
	ID        string  `json:"id"                   validate:"required"`
	Username  string  `json:"username"             validate:"required"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"      validate:"omitempty,email"`
}

// Collaborator is a user granted to work on a task alongside the primary assignee.
type Collaborator = UserRef

// DisplayName returns "First Last" when known, otherwise the username.
func (u UserRef) DisplayName() string {
	parts := make([]string, 0, 2)
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}

	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}

	if len(parts) == 0 {
		return u.Username
	}

	return strings.Join(parts, " ")
}

// UnmarshalJSON accepts both numeric and string identifiers, since the
// backend serialises user ids as integers.
func (u *UserRef) UnmarshalJSON(data []byte) error {
	type alias UserRef

	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(u)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, err := ParseID(aux.ID)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	u.ID = id

	return nil
}

// ParseID normalises a raw JSON identifier (string or number) to a string.
// A missing or null identifier yields "".
func ParseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}

		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}

	return n.String(), nil
}
