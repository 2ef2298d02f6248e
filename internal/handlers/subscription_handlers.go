package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"subsync/internal/common"
	"subsync/internal/models"
	"subsync/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SubscriptionHandlers serves the authenticated subscription endpoints.
type SubscriptionHandlers struct {
	subscriptionService services.SubscriptionService
	logger              *zap.Logger
}

func NewSubscriptionHandlers(subscriptionService services.SubscriptionService, logger *zap.Logger) *SubscriptionHandlers {
	return &SubscriptionHandlers{
		subscriptionService: subscriptionService,
		logger:              logger.Named("http"),
	}
}

type SubscribeRequest struct {
	CardNo                string `json:"cardNo" validate:"required,numeric,min=12,max=19"`
	CardOwner             string `json:"cardOwner" validate:"required"`
	ExpireMonth           string `json:"expireMonth" validate:"required,numeric,len=2"`
	ExpireYear            string `json:"expireYear" validate:"required,numeric,len=2"`
	CVV                   string `json:"cvv" validate:"required,numeric,min=3,max=4"`
	PackageID             string `json:"packageId" validate:"required"`
	SubscriberPhoneNumber string `json:"subscriberPhoneNumber" validate:"required"`
	SubscriberCountry     string `json:"subscriberCountry" validate:"required,len=2"`
	SubscriberIPAddress   string `json:"subscriberIpAddress" validate:"required,ip"`
	RedirectURL           string `json:"redirectUrl" validate:"required,url"`
	Language              string `json:"language" validate:"omitempty,len=2"`
	Platform              string `json:"platform"`
}

type SubscribeResponse struct {
	Message             string          `json:"message"`
	SubscriptionID      string          `json:"subscription_id"`
	ZotloSubscriptionID string          `json:"zotlo_subscription_id"`
	ZotloResponse       json.RawMessage `json:"zotlo_response,omitempty"`
}

type StatusResponse struct {
	Status     string     `json:"status"`
	Package    string     `json:"package,omitempty"`
	ExpireDate *time.Time `json:"expire_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=255"`
	Force  bool   `json:"force"`
}

type CancelResponse struct {
	Message       string          `json:"message"`
	ZotloResponse json.RawMessage `json:"zotlo_response,omitempty"`
}

type CardsResponse struct {
	Count         int             `json:"count"`
	Cards         []models.Card   `json:"cards"`
	ZotloResponse json.RawMessage `json:"zotlo_response,omitempty"`
}

// Subscribe godoc
//
//	@Summary		Start a subscription
//	@Description	Charges the card through Zotlo and stores the subscription as active.
//	@Security		BearerToken
//	@Tags			subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SubscribeRequest	true	"Card and subscriber details"
//	@Success		200		{object}	SubscribeResponse
//	@Failure		400		{object}	common.ErrorResponse
//	@Failure		409		{object}	common.ErrorResponse
//	@Failure		502		{object}	common.ErrorResponse
//	@Router			/v1/subscribe [post]
func (h *SubscriptionHandlers) Subscribe(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req SubscribeRequest
	details, err := bindAndValidate(c, &req)
	if err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if details != nil {
		return common.SendValidationError(c, details)
	}

	result, err := h.subscriptionService.Subscribe(c.Request().Context(), userID, services.SubscribeRequest{
		CardNo:                req.CardNo,
		CardOwner:             req.CardOwner,
		ExpireMonth:           req.ExpireMonth,
		ExpireYear:            req.ExpireYear,
		CVV:                   req.CVV,
		PackageID:             req.PackageID,
		SubscriberPhoneNumber: req.SubscriberPhoneNumber,
		SubscriberCountry:     req.SubscriberCountry,
		SubscriberIPAddress:   req.SubscriberIPAddress,
		RedirectURL:           req.RedirectURL,
		Language:              req.Language,
		Platform:              req.Platform,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, SubscribeResponse{
		Message:             "Subscription started successfully.",
		SubscriptionID:      result.Subscription.SubscriptionID.String(),
		ZotloSubscriptionID: common.SafeString(result.Subscription.ZotloSubscriptionID),
		ZotloResponse:       result.ZotloResponse,
	})
}

// Status godoc
//
//	@Summary		Current subscription status
//	@Security		BearerToken
//	@Tags			subscriptions
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/v1/subscription/status [get]
func (h *SubscriptionHandlers) Status(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	view, err := h.subscriptionService.Status(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, StatusResponse{
		Status:     view.Status,
		Package:    view.Package,
		ExpireDate: view.ExpireDate,
		Message:    view.Message,
	})
}

// Cancel godoc
//
//	@Summary		Cancel the active subscription
//	@Security		BearerToken
//	@Tags			subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CancelRequest	false	"Reason and force flag"
//	@Success		200		{object}	CancelResponse
//	@Failure		404		{object}	common.ErrorResponse
//	@Failure		422		{object}	common.ErrorResponse
//	@Router			/v1/subscription/cancel [post]
func (h *SubscriptionHandlers) Cancel(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CancelRequest
	details, err := bindAndValidate(c, &req)
	if err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if details != nil {
		return common.SendValidationError(c, details)
	}

	outcome, err := h.subscriptionService.Cancel(c.Request().Context(), userID, services.CancelRequest{
		Reason: req.Reason,
		Force:  req.Force,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, CancelResponse{
		Message:       "Subscription cancelled successfully.",
		ZotloResponse: outcome.ZotloResponse,
	})
}

// SavedCards godoc
//
//	@Summary		List saved cards
//	@Security		BearerToken
//	@Tags			cards
//	@Produce		json
//	@Success		200	{object}	CardsResponse
//	@Router			/v1/cards [get]
func (h *SubscriptionHandlers) SavedCards(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	result, err := h.subscriptionService.SavedCards(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	cards := result.Cards
	if cards == nil {
		cards = []models.Card{}
	}
	return c.JSON(http.StatusOK, CardsResponse{
		Count:         len(cards),
		Cards:         cards,
		ZotloResponse: result.Raw,
	})
}

// RegisterRoutes mounts the endpoints on an authenticated group.
func (h *SubscriptionHandlers) RegisterRoutes(g *echo.Group) {
	g.POST("/subscribe", h.Subscribe)
	g.GET("/subscription/status", h.Status)
	g.POST("/subscription/cancel", h.Cancel)
	g.GET("/cards", h.SavedCards)
}
