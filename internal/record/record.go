package record

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/go-playground/validator/v10"
)

// ErrCorrupt marks persisted state that failed to decode or validate.
// Callers must treat the record as absent and purge it.
var ErrCorrupt = errors.New("record: corrupt persisted state")

var validate = validator.New(validator.WithRequiredStructEnabled())

// User is the persisted profile of the authenticated user.
type User struct {
	ID                 string `json:"id" validate:"required"`
	Email              string `json:"email,omitempty"`
	FirstName          string `json:"first_name,omitempty" validate:"required_without=LastName"`
	LastName           string `json:"last_name,omitempty" validate:"required_without=FirstName"`
	ProfessionalStatus string `json:"professional_status,omitempty"`
}

// PermissionSnapshot is the persisted copy of the last successfully resolved
// permission set, scoped to the user it was resolved for.
type PermissionSnapshot struct {
	UserID      string    `json:"user_id" validate:"required"`
	Permissions []string  `json:"permissions"`
	SavedAt     time.Time `json:"saved_at"`
}

// EncodeUser serializes u for storage. Encoding validates first so a corrupt
// value is rejected at the write side, not discovered at the next startup.
func EncodeUser(u User) (string, error) {
	if err := validate.Struct(u); err != nil {
		return "", fmt.Errorf("record: encode user: %w", err)
	}
	data, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("record: encode user: %w", err)
	}
	return string(data), nil
}

// DecodeUser parses a persisted user profile. Any parse or validation
// failure reports [ErrCorrupt].
func DecodeUser(raw string) (User, error) {
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, fmt.Errorf("%w: user: %v", ErrCorrupt, err)
	}
	if err := validate.Struct(u); err != nil {
		return User{}, fmt.Errorf("%w: user: %v", ErrCorrupt, err)
	}
	return u, nil
}

// EncodeSnapshot serializes a permission snapshot for storage.
func EncodeSnapshot(s PermissionSnapshot) (string, error) {
	if err := validate.Struct(s); err != nil {
		return "", fmt.Errorf("record: encode snapshot: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("record: encode snapshot: %w", err)
	}
	return string(data), nil
}

// DecodeSnapshot parses a persisted permission snapshot. Any parse or
// validation failure reports [ErrCorrupt].
func DecodeSnapshot(raw string) (PermissionSnapshot, error) {
	var s PermissionSnapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return PermissionSnapshot{}, fmt.Errorf("%w: snapshot: %v", ErrCorrupt, err)
	}
	if err := validate.Struct(s); err != nil {
		return PermissionSnapshot{}, fmt.Errorf("%w: snapshot: %v", ErrCorrupt, err)
	}
	return s, nil
}
