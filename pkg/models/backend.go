package models

import (
	"time"

	"github.com/google/uuid"
)

// Backend represents a remote delivery target for generated export files.
// Password is an opaque secret: it is never logged and never serialized
// in API responses.
type Backend struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Username    string    `json:"username"`
	Password    string    `json:"-"`
	Enabled     bool      `json:"enabled"`

	// AllowedUserIDs restricts which users may export to this backend.
	// Empty means any user.
	AllowedUserIDs []int64 `json:"allowed_user_ids"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// CanUse reports whether the given user may deliver to this backend.
func (b *Backend) CanUse(userID int64) bool {
	if len(b.AllowedUserIDs) == 0 {
		return true
	}
	for _, id := range b.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
