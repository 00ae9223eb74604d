package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// User mirrors a user record returned by the users resource.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar"`
}

// FullName joins first and last name with a single space.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Fields returns the display fields of u as a patch.
func (u User) Fields() UserFields {
	return UserFields{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Avatar:    u.Avatar,
	}
}

// UnmarshalJSON accepts the id as either a JSON number or a numeric string.
// Some backends echo created records with string identifiers.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var raw struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.plain)
	id, err := parseID(raw.ID)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func parseID(raw json.RawMessage) (int64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, err
		}
		if strings.TrimSpace(s) == "" {
			return 0, nil
		}
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse id %q: %w", s, err)
		}
		return id, nil
	}
	var id int64
	if err := json.Unmarshal(trimmed, &id); err != nil {
		return 0, fmt.Errorf("parse id: %w", err)
	}
	return id, nil
}

// UserFields carries the writable fields of a user. Empty fields are omitted
// from request bodies, so the same type serves both create and partial update.
type UserFields struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// IsZero reports whether no field is set.
func (f UserFields) IsZero() bool {
	return f == UserFields{}
}

// Merge shallow-merges the non-empty fields of f over u.
func (f UserFields) Merge(u User) User {
	if f.FirstName != "" {
		u.FirstName = f.FirstName
	}
	if f.LastName != "" {
		u.LastName = f.LastName
	}
	if f.Email != "" {
		u.Email = f.Email
	}
	if f.Avatar != "" {
		u.Avatar = f.Avatar
	}
	return u
}

// UserPage mirrors a paginated list response.
type UserPage struct {
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
	Data       []User `json:"data"`
}

// userEnvelope wraps single-record responses of the form {"data": {...}}.
type userEnvelope struct {
	Data *User `json:"data"`
}

// Credentials are posted to the login endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse mirrors the login payload.
type LoginResponse struct {
	Token string `json:"token"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
