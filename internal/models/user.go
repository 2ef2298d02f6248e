package models

import (
	"time"
)

// User is owned by the auth layer; this service only reads it and assigns
// the provider subscriber id.
type User struct {
	ID                int64     `json:"id" db:"id"`
	Email             string    `json:"email" db:"email"`
	Name              string    `json:"name" db:"name"`
	ZotloSubscriberID *string   `json:"zotlo_subscriber_id" db:"zotlo_subscriber_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

func (u *User) SubscriberID() string {
	if u == nil || u.ZotloSubscriberID == nil {
		return ""
	}
	return *u.ZotloSubscriberID
}
