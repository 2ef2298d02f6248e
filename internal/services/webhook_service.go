package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"subsync/internal/caching"
	"subsync/internal/common"
	"subsync/internal/metrics"
	"subsync/internal/models"
	"subsync/internal/repositories"

	"go.uber.org/zap"
)

const (
	WebhookCreated   = "created"
	WebhookUpdated   = "updated"
	WebhookUnchanged = "unchanged"
	WebhookSkipped   = "skipped_active_conflict"
)

// WebhookEvent is the normalized content of a Zotlo webhook delivery.
type WebhookEvent struct {
	SubscriberID          string
	RemoteStatus          string
	ExpireDate            string
	Package               string
	OriginalTransactionID string
	Cancellation          models.CancellationMarker
}

func (e WebhookEvent) remote() models.RemoteSubscription {
	return models.RemoteSubscription{
		OriginalTransactionID: e.OriginalTransactionID,
		Package:               e.Package,
		RealStatus:            e.RemoteStatus,
		ExpireDate:            e.ExpireDate,
		Cancellation:          e.Cancellation,
	}
}

type WebhookResult struct {
	Outcome        string
	SubscriptionID int64
}

type WebhookService interface {
	HandleZotloWebhook(ctx context.Context, event WebhookEvent) (*WebhookResult, error)
}

// ParseZotloWebhook reads fields from "profile" when present, else from the
// top level. Package falls back to the top-level packageId.
func ParseZotloWebhook(body []byte) (WebhookEvent, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookEvent{}, &common.ClientInputError{Message: "webhook body must be a JSON object"}
	}

	source := payload
	if raw, ok := payload["profile"]; ok {
		var profile map[string]json.RawMessage
		if err := json.Unmarshal(raw, &profile); err == nil && profile != nil {
			source = profile
		}
	}

	event := WebhookEvent{
		SubscriberID:          scalarString(source["subscriberId"]),
		RemoteStatus:          scalarString(source["realStatus"]),
		ExpireDate:            scalarString(source["expireDate"]),
		Package:               scalarString(source["package"]),
		OriginalTransactionID: scalarString(source["originalTransactionId"]),
	}
	if event.RemoteStatus == "" {
		event.RemoteStatus = scalarString(source["status"])
	}
	if event.Package == "" {
		event.Package = scalarString(payload["packageId"])
	}
	if raw, ok := source["cancellation"]; ok {
		event.Cancellation = models.CancellationMarker(raw)
	}

	if event.SubscriberID == "" || event.RemoteStatus == "" {
		return event, &common.ClientInputError{Message: "Missing parameter: subscriberId and status are required."}
	}
	return event, nil
}

// scalarString renders a JSON string or number as text. Objects, arrays,
// booleans and null yield "".
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

type webhookService struct {
	store  repositories.Store
	cache  caching.CacheService
	logger *zap.Logger
}

func NewWebhookService(store repositories.Store, cache caching.CacheService, logger *zap.Logger) WebhookService {
	if cache == nil {
		cache = caching.NewNoopCacheService()
	}
	return &webhookService{store: store, cache: cache, logger: logger.Named("webhook")}
}

func (s *webhookService) HandleZotloWebhook(ctx context.Context, event WebhookEvent) (*WebhookResult, error) {
	log := s.logger.With(
		zap.String("subscriber_id", event.SubscriberID),
		zap.String("original_transaction_id", event.OriginalTransactionID),
		zap.String("remote_status", event.RemoteStatus),
	)

	result := &WebhookResult{}
	var userID *int64

	err := s.store.WithTx(ctx, func(tx repositories.Store) error {
		user, err := tx.Users().GetByZotloSubscriberID(ctx, event.SubscriberID)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			log.Warn("webhook user not found for subscriber id")
		case err != nil:
			return err
		default:
			userID = &user.ID
		}

		sub, err := s.findSubscription(ctx, tx, event, userID)
		if err != nil {
			return err
		}

		remote := event.remote()
		if sub == nil {
			created := models.Subscription{UserID: userID, ZotloSubscriptionID: common.StringPtr(event.OriginalTransactionID)}
			diff := ComputeDiff(created, remote)
			s.warnUnknown(log, diff)
			created = diff.Apply(created)
			if err := tx.Subscriptions().Create(ctx, &created); err != nil {
				return err
			}
			result.Outcome, result.SubscriptionID = WebhookCreated, created.ID
			if userID == nil {
				log.Warn("stored orphan subscription from webhook", zap.Int64("subscription", created.ID))
			}
			return nil
		}

		if sub.UserID != nil {
			userID = sub.UserID
		}
		diff := ComputeDiff(*sub, remote)
		s.warnUnknown(log, diff)
		if sub.ZotloSubscriptionID == nil && event.OriginalTransactionID != "" {
			txn := event.OriginalTransactionID
			diff.ZotloSubscriptionID = &txn
		}
		result.SubscriptionID = sub.ID
		if !diff.HasChanges() {
			result.Outcome = WebhookUnchanged
			return nil
		}

		updated := diff.Apply(*sub)
		if err := tx.Subscriptions().Update(ctx, &updated); err != nil {
			return err
		}
		result.Outcome = WebhookUpdated
		log.Info("subscription updated from webhook",
			zap.Int64("subscription", sub.ID),
			zap.String("old_status", string(sub.Status)),
			zap.String("new_status", string(updated.Status)),
			zap.String("old_package", sub.PackageName),
			zap.String("new_package", updated.PackageName))
		return nil
	})

	if errors.Is(err, repositories.ErrActiveSubscriptionExists) {
		metrics.WebhookEventsCount.WithLabelValues(WebhookSkipped).Inc()
		log.Warn("already active, skip", zap.Error(err))
		return &WebhookResult{Outcome: WebhookSkipped}, nil
	}
	if err != nil {
		metrics.WebhookEventsCount.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.Error("webhook save error", zap.Error(err))
		return nil, common.NewPersistenceError("apply webhook", err)
	}

	if userID != nil && result.Outcome != WebhookUnchanged {
		if err := s.cache.InvalidateSubscriptionStatus(ctx, *userID); err != nil {
			log.Warn("status cache invalidation failed", zap.Error(err))
		}
	}
	metrics.WebhookEventsCount.WithLabelValues(result.Outcome).Inc()
	log.Info("webhook processed", zap.String("outcome", result.Outcome), zap.Int64("subscription", result.SubscriptionID))
	return result, nil
}

// findSubscription looks up by transaction id, then the user's latest
// subscription. It returns nil when neither exists.
func (s *webhookService) findSubscription(ctx context.Context, tx repositories.Store, event WebhookEvent, userID *int64) (*models.Subscription, error) {
	if event.OriginalTransactionID != "" {
		sub, err := tx.Subscriptions().GetByZotloSubscriptionID(ctx, event.OriginalTransactionID)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}
	if userID != nil {
		sub, err := tx.Subscriptions().GetLatestByUser(ctx, *userID)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (s *webhookService) warnUnknown(log *zap.Logger, diff SubscriptionDiff) {
	if diff.UnknownStatus != "" {
		log.Warn("unknown zotlo status mapped to active", zap.String("raw_status", diff.UnknownStatus))
	}
}
