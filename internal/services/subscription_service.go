package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"subsync/internal/caching"
	"subsync/internal/common"
	"subsync/internal/models"
	"subsync/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	notSubscribedStatus  = "not_subscribed"
	notSubscribedMessage = "The user has no active subscription."
	unknownPackage       = "unknown"
)

// SubscriptionService handles the user-facing subscription operations
type SubscriptionService interface {
	Subscribe(ctx context.Context, userID int64, req SubscribeRequest) (*SubscribeResult, error)
	Status(ctx context.Context, userID int64) (*models.SubscriptionStatusView, error)
	Cancel(ctx context.Context, userID int64, req CancelRequest) (*CancelOutcome, error)
	SavedCards(ctx context.Context, userID int64) (*SavedCardsResult, error)
}

// SubscribeRequest carries the card and subscriber details. The subscriber id
// is resolved by the service and never taken from the caller.
type SubscribeRequest struct {
	CardNo                string
	CardOwner             string
	ExpireMonth           string
	ExpireYear            string
	CVV                   string
	PackageID             string
	SubscriberPhoneNumber string
	SubscriberCountry     string
	SubscriberIPAddress   string
	RedirectURL           string
	Language              string
	Platform              string
}

type SubscribeResult struct {
	Subscription  models.Subscription
	ZotloResponse json.RawMessage
}

type CancelRequest struct {
	Reason string
	Force  bool
}

type CancelOutcome struct {
	Subscription  models.Subscription
	ZotloResponse json.RawMessage
}

type subscriptionService struct {
	store  repositories.Store
	zotlo  ZotloService
	cache  caching.CacheService
	logger *zap.Logger
}

func NewSubscriptionService(store repositories.Store, zotlo ZotloService, cache caching.CacheService, logger *zap.Logger) SubscriptionService {
	if cache == nil {
		cache = caching.NewNoopCacheService()
	}
	return &subscriptionService{
		store:  store,
		zotlo:  zotlo,
		cache:  cache,
		logger: logger.Named("subscriptions"),
	}
}

func (s *subscriptionService) Subscribe(ctx context.Context, userID int64, req SubscribeRequest) (*SubscribeResult, error) {
	if _, err := s.store.Subscriptions().GetLatestActiveByUser(ctx, userID); err == nil {
		return nil, &common.ConflictError{Message: "You already have an active subscription."}
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NewPersistenceError("lookup active subscription", err)
	}

	subscriberID, err := s.subscriberID(ctx, userID)
	if err != nil {
		return nil, err
	}

	remote, err := s.zotlo.ListSubscriptions(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	for _, r := range remote {
		if r.RealStatus == string(models.StatusActive) {
			return nil, &common.ConflictError{
				Message: "You already have an active subscription on Zotlo.",
				Details: map[string]any{"subscriptions": remote},
			}
		}
	}

	started, err := s.zotlo.StartSubscription(ctx, StartSubscriptionRequest{
		CardNo:                req.CardNo,
		CardOwner:             req.CardOwner,
		ExpireMonth:           req.ExpireMonth,
		ExpireYear:            req.ExpireYear,
		CVV:                   req.CVV,
		PackageID:             req.PackageID,
		SubscriberID:          subscriberID,
		SubscriberPhoneNumber: req.SubscriberPhoneNumber,
		SubscriberCountry:     req.SubscriberCountry,
		SubscriberIPAddress:   req.SubscriberIPAddress,
		RedirectURL:           req.RedirectURL,
		Language:              req.Language,
		Platform:              req.Platform,
	})
	if err != nil {
		return nil, err
	}

	sub := models.Subscription{
		SubscriptionID:      uuid.New(),
		UserID:              &userID,
		ZotloSubscriptionID: common.StringPtr(started.ZotloSubscriptionID),
		Status:              models.StatusActive,
		PackageName:         started.PackageID,
	}
	if expire, ok := parseRemoteDate(started.ExpireDate); ok {
		sub.ExpireDate = &expire
	}

	if err := s.store.Subscriptions().Create(ctx, &sub); err != nil {
		// The provider has already charged at this point; keep enough context
		// in the log to reconcile by hand.
		s.logger.Error("subscription started on zotlo but not stored locally",
			zap.Int64("user_id", userID),
			zap.String("zotlo_subscription_id", started.ZotloSubscriptionID),
			zap.Error(err))
		if errors.Is(err, repositories.ErrActiveSubscriptionExists) {
			return nil, &common.ConflictError{Message: "You already have an active subscription."}
		}
		return nil, common.NewPersistenceError("create subscription", err)
	}
	s.invalidate(ctx, userID)

	s.logger.Info("subscription started",
		zap.Int64("user_id", userID),
		zap.String("subscription_id", sub.SubscriptionID.String()),
		zap.String("zotlo_subscription_id", started.ZotloSubscriptionID),
		zap.String("package", sub.PackageName))

	return &SubscribeResult{Subscription: sub, ZotloResponse: started.Raw}, nil
}

func (s *subscriptionService) Status(ctx context.Context, userID int64) (*models.SubscriptionStatusView, error) {
	if cached, err := s.cache.GetSubscriptionStatus(ctx, userID); err != nil {
		s.logger.Warn("status cache read failed", zap.Int64("user_id", userID), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	var view *models.SubscriptionStatusView
	sub, err := s.store.Subscriptions().GetLatestActiveByUser(ctx, userID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		view = &models.SubscriptionStatusView{Status: notSubscribedStatus, Message: notSubscribedMessage}
	case err != nil:
		return nil, common.NewPersistenceError("lookup active subscription", err)
	default:
		pkg := sub.PackageName
		if pkg == "" {
			pkg = unknownPackage
		}
		view = &models.SubscriptionStatusView{Status: string(sub.Status), Package: pkg, ExpireDate: sub.ExpireDate}
	}

	if err := s.cache.SetSubscriptionStatus(ctx, userID, view); err != nil {
		s.logger.Warn("status cache write failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return view, nil
}

func (s *subscriptionService) Cancel(ctx context.Context, userID int64, req CancelRequest) (*CancelOutcome, error) {
	sub, err := s.store.Subscriptions().GetLatestActiveByUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, &common.NotFoundError{Resource: "active subscription", Message: "No active subscription found."}
	}
	if err != nil {
		return nil, common.NewPersistenceError("lookup active subscription", err)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NewPersistenceError("lookup user", err)
	}
	if user.SubscriberID() == "" {
		return nil, &common.ClientInputError{Message: "Subscriber id not found.", Status: 422}
	}

	reason := req.Reason
	if reason == "" {
		reason = "user_request"
	}
	res, err := s.zotlo.CancelSubscription(ctx, CancelSubscriptionRequest{
		SubscriberID: user.SubscriberID(),
		PackageID:    sub.PackageName,
		Reason:       reason,
		Force:        req.Force,
	})
	if err != nil {
		return nil, err
	}

	sub.Status = models.StatusCancelled
	if err := s.store.Subscriptions().Update(ctx, sub); err != nil {
		return nil, common.NewPersistenceError("cancel subscription", err)
	}
	s.invalidate(ctx, userID)

	s.logger.Info("subscription cancelled",
		zap.Int64("user_id", userID),
		zap.Int64("subscription", sub.ID),
		zap.String("reason", reason),
		zap.Bool("force", req.Force))

	return &CancelOutcome{Subscription: *sub, ZotloResponse: res.Raw}, nil
}

func (s *subscriptionService) SavedCards(ctx context.Context, userID int64) (*SavedCardsResult, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, common.NewPersistenceError("lookup user", err)
	}
	if user.SubscriberID() == "" {
		return nil, common.NewClientInputError("The user has no Zotlo subscriber id.")
	}
	return s.zotlo.ListSavedCards(ctx, user.SubscriberID())
}

// subscriberID returns the user's subscriber id, generating one on first use.
func (s *subscriptionService) subscriberID(ctx context.Context, userID int64) (string, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", &common.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return "", common.NewPersistenceError("lookup user", err)
	}
	if id := user.SubscriberID(); id != "" {
		return id, nil
	}

	id, err := s.store.Users().AssignZotloSubscriberID(ctx, userID, uuid.NewString())
	if err != nil {
		return "", common.NewPersistenceError("assign subscriber id", fmt.Errorf("user %d: %w", userID, err))
	}
	return id, nil
}

func (s *subscriptionService) invalidate(ctx context.Context, userID int64) {
	if err := s.cache.InvalidateSubscriptionStatus(ctx, userID); err != nil {
		s.logger.Warn("status cache invalidation failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
