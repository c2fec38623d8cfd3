package users

import (
	"errors"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-manager/internal/utils"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ErrInvalidPayload is returned when a user payload cannot be normalized,
// typically because the service omitted the user ID.
var ErrInvalidPayload = errors.New("invalid user payload")

// Payload is the raw user shape returned by the auth service. Endpoints are not
// consistent about field spellings, so both the snake_case and camelCase
// variants are accepted and reconciled by Normalize.
type Payload struct {
	ID           string `json:"id,omitempty"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	FirstNameAlt string `json:"firstName,omitempty"`
	LastNameAlt  string `json:"lastName,omitempty"`
	Name         string `json:"name,omitempty"`
	Role         string `json:"role,omitempty"`
	Provider     string `json:"provider,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
	CreatedAtAlt string `json:"createdAt,omitempty"`
	UpdatedAtAlt string `json:"updatedAt,omitempty"`
}

// Normalize converts a raw service payload into a User. The payload must carry
// an ID; every other field falls back along a fixed precedence:
//   - Username: username, email, id
//   - Name: explicit name, first+last name, username, email, id
//   - Role: ADMIN when the service says so, USER otherwise
//   - Timestamps: RFC 3339 when parseable, otherwise the current time for
//     CreatedAt and CreatedAt for UpdatedAt
func Normalize(p *Payload) (*User, error) {
	if p == nil || p.ID == "" {
		return nil, ErrInvalidPayload
	}

	firstName := utils.FirstNonEmpty(p.FirstName, p.FirstNameAlt)
	lastName := utils.FirstNonEmpty(p.LastName, p.LastNameAlt)
	fullName := strings.TrimSpace(strings.Join(nonEmpty(firstName, lastName), " "))

	createdAt := parseTimestamp(utils.FirstNonEmpty(p.CreatedAt, p.CreatedAtAlt), NowTimeFunc())
	updatedAt := parseTimestamp(utils.FirstNonEmpty(p.UpdatedAt, p.UpdatedAtAlt), createdAt)

	return &User{
		ID:        p.ID,
		Username:  utils.FirstNonEmpty(p.Username, p.Email, p.ID),
		Email:     p.Email,
		Name:      utils.FirstNonEmpty(p.Name, fullName, p.Username, p.Email, p.ID),
		Role:      normalizeRole(p.Role),
		Provider:  utils.FirstNonEmpty(p.Provider, DefaultProvider),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func normalizeRole(role string) RoleType {
	if strings.EqualFold(role, string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

func parseTimestamp(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback.UTC()
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fallback.UTC()
	}
	return t.UTC()
}

func nonEmpty(values ...string) []string {
	filtered := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			filtered = append(filtered, v)
		}
	}
	return filtered
}
