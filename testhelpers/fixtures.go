package testhelpers

import (
	"time"

	"subsync/internal/models"
)

func StringPtr(s string) *string {
	return &s
}

func Int64Ptr(i int64) *int64 {
	return &i
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

// NewUser builds a user with the given id and subscriber id. An empty
// subscriber id leaves the user unprovisioned.
func NewUser(id int64, subscriberID string) models.User {
	u := models.User{
		ID:    id,
		Email: "user@example.com",
		Name:  "Test User",
	}
	if subscriberID != "" {
		u.ZotloSubscriberID = &subscriberID
	}
	return u
}

// NewSubscription builds a subscription for userID. An empty txn leaves
// zotlo_subscription_id unset.
func NewSubscription(userID int64, txn string, pkg string, status models.SubscriptionStatus) models.Subscription {
	s := models.Subscription{
		UserID:      &userID,
		Status:      status,
		PackageName: pkg,
	}
	if txn != "" {
		s.ZotloSubscriptionID = &txn
	}
	return s
}
