package services

import (
	"sort"
	"strings"
	"time"

	"subsync/internal/models"
)

var remoteDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseRemoteDate parses the date formats Zotlo is known to send. Dates
// without a zone are taken as UTC.
func parseRemoteDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range remoteDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// SubscriptionDiff holds the fields that must change on a local record. Nil
// fields are left untouched.
type SubscriptionDiff struct {
	Status              *models.SubscriptionStatus
	PackageName         *string
	ExpireDate          *time.Time
	ZotloSubscriptionID *string

	// UnknownStatus is the raw remote status when it was not recognised and
	// the mapper fell back to active.
	UnknownStatus string
}

func (d SubscriptionDiff) HasChanges() bool {
	return d.Status != nil || d.PackageName != nil || d.ExpireDate != nil || d.ZotloSubscriptionID != nil
}

// Apply returns a copy of sub with the diff applied.
func (d SubscriptionDiff) Apply(sub models.Subscription) models.Subscription {
	if d.Status != nil {
		sub.Status = *d.Status
	}
	if d.PackageName != nil {
		sub.PackageName = *d.PackageName
	}
	if d.ExpireDate != nil {
		expire := *d.ExpireDate
		sub.ExpireDate = &expire
	}
	if d.ZotloSubscriptionID != nil {
		id := *d.ZotloSubscriptionID
		sub.ZotloSubscriptionID = &id
	}
	return sub
}

// Reconcile picks the remote record matching local and returns the diff
// against it, or nil when no candidate matches.
func Reconcile(local models.Subscription, candidates []models.RemoteSubscription) *SubscriptionDiff {
	remote, ok := matchRemote(local, candidates)
	if !ok {
		return nil
	}
	diff := ComputeDiff(local, remote)
	return &diff
}

func matchRemote(local models.Subscription, candidates []models.RemoteSubscription) (models.RemoteSubscription, bool) {
	if local.ZotloSubscriptionID != nil && *local.ZotloSubscriptionID != "" {
		for _, c := range candidates {
			if c.OriginalTransactionID == *local.ZotloSubscriptionID {
				return c, true
			}
		}
	}

	type dated struct {
		remote models.RemoteSubscription
		start  time.Time
		ok     bool
	}
	var samePackage []dated
	for _, c := range candidates {
		if c.Package != "" && c.Package == local.PackageName {
			start, ok := parseRemoteDate(c.StartDate)
			samePackage = append(samePackage, dated{remote: c, start: start, ok: ok})
		}
	}
	if len(samePackage) == 0 {
		return models.RemoteSubscription{}, false
	}

	sort.SliceStable(samePackage, func(i, j int) bool {
		a, b := samePackage[i], samePackage[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.start.After(b.start)
	})
	return samePackage[0].remote, true
}

// ComputeDiff compares local against remote. It never changes
// ZotloSubscriptionID; binding a transaction id is the caller's decision.
func ComputeDiff(local models.Subscription, remote models.RemoteSubscription) SubscriptionDiff {
	var diff SubscriptionDiff

	status, known := mapRemoteStatus(remote.RemoteStatus(), remote.Cancellation)
	if !known {
		diff.UnknownStatus = remote.RemoteStatus()
	}
	if status != local.Status {
		diff.Status = &status
	}

	if remote.Package != "" && remote.Package != local.PackageName {
		pkg := remote.Package
		diff.PackageName = &pkg
	}

	if expire, ok := parseRemoteDate(remote.ExpireDate); ok {
		if local.ExpireDate == nil || !local.ExpireDate.Equal(expire) {
			diff.ExpireDate = &expire
		}
	}
	return diff
}
