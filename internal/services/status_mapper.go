package services

import (
	"strings"

	"subsync/internal/models"
)

// MapRemoteStatus maps a Zotlo status and cancellation marker to the local
// status. Any input yields a valid status; unknown values fall back to active.
func MapRemoteStatus(status string, cancellation models.CancellationMarker) models.SubscriptionStatus {
	mapped, _ := mapRemoteStatus(status, cancellation)
	return mapped
}

// mapRemoteStatus also reports whether the status was recognised, so callers
// can log values that hit the permissive default.
func mapRemoteStatus(status string, cancellation models.CancellationMarker) (models.SubscriptionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "cancelled", "canceled", "passive":
		return models.StatusCancelled, true
	case "expired":
		return models.StatusExpired, true
	}

	if cancellation.Present() {
		return models.StatusCancelled, true
	}

	switch s := models.SubscriptionStatus(strings.ToLower(strings.TrimSpace(status))); s {
	case models.StatusTrial, models.StatusPending, models.StatusActive:
		return s, true
	}
	return models.StatusActive, false
}
