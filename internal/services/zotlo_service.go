package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subsync/internal/config"
	"subsync/internal/metrics"
	"subsync/internal/models"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	OpStartSubscription  = "start_subscription"
	OpListSubscriptions  = "list_subscriptions"
	OpCancelSubscription = "cancel_subscription"
	OpListSavedCards     = "list_saved_cards"

	maxResponseBytes = 1 << 20
)

var defaultProviderMessages = map[string]string{
	OpStartSubscription:  "Zotlo API error.",
	OpListSubscriptions:  "Could not retrieve the subscription list.",
	OpCancelSubscription: "Cancellation failed.",
	OpListSavedCards:     "Could not retrieve the card list.",
}

// ZotloService is the single client for the Zotlo billing API.
type ZotloService interface {
	StartSubscription(ctx context.Context, req StartSubscriptionRequest) (*StartSubscriptionResult, error)
	ListSubscriptions(ctx context.Context, subscriberID string) ([]models.RemoteSubscription, error)
	CancelSubscription(ctx context.Context, req CancelSubscriptionRequest) (*CancelResult, error)
	ListSavedCards(ctx context.Context, subscriberID string) (*SavedCardsResult, error)
}

type StartSubscriptionRequest struct {
	CardNo                string `json:"cardNo"`
	CardOwner             string `json:"cardOwner"`
	ExpireMonth           string `json:"expireMonth"`
	ExpireYear            string `json:"expireYear"`
	CVV                   string `json:"cvv"`
	PackageID             string `json:"packageId"`
	SubscriberID          string `json:"subscriberId"`
	SubscriberPhoneNumber string `json:"subscriberPhoneNumber"`
	SubscriberCountry     string `json:"subscriberCountry"`
	SubscriberIPAddress   string `json:"subscriberIpAddress"`
	RedirectURL           string `json:"redirectUrl"`
	Language              string `json:"language"`
	Platform              string `json:"platform"`
}

func (r StartSubscriptionRequest) payload() map[string]any {
	language := r.Language
	if language == "" {
		language = "tr"
	}
	platform := r.Platform
	if platform == "" {
		platform = "web"
	}
	return map[string]any{
		"cardNo":                r.CardNo,
		"cardOwner":             r.CardOwner,
		"expireMonth":           r.ExpireMonth,
		"expireYear":            r.ExpireYear,
		"cvv":                   r.CVV,
		"packageId":             r.PackageID,
		"subscriberId":          r.SubscriberID,
		"subscriberPhoneNumber": r.SubscriberPhoneNumber,
		"subscriberCountry":     r.SubscriberCountry,
		"subscriberIpAddress":   r.SubscriberIPAddress,
		"redirectUrl":           r.RedirectURL,
		"language":              language,
		"platform":              platform,
	}
}

type StartSubscriptionResult struct {
	ZotloSubscriptionID string
	ExpireDate          string
	PackageID           string
	Raw                 json.RawMessage
}

type CancelSubscriptionRequest struct {
	SubscriberID string
	PackageID    string
	Reason       string
	Force        bool
}

type CancelResult struct {
	Raw json.RawMessage
}

type SavedCardsResult struct {
	Cards []models.Card
	Raw   json.RawMessage
}

type zotloEnvelope struct {
	Meta   json.RawMessage `json:"meta"`
	Result json.RawMessage `json:"result"`
}

type zotloMeta struct {
	ErrorMessage string `json:"errorMessage"`
}

type zotloService struct {
	cfg    config.ZotloConfig
	http   *http.Client
	logger *zap.Logger
}

func NewZotloService(cfg config.ZotloConfig, logger *zap.Logger) ZotloService {
	return &zotloService{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("zotlo"),
	}
}

func (s *zotloService) StartSubscription(ctx context.Context, req StartSubscriptionRequest) (*StartSubscriptionResult, error) {
	payload := req.payload()
	call := zotloCall{
		operation: OpStartSubscription,
		method:    http.MethodPost,
		path:      "/v1/payment/credit-card",
		body:      payload,
		masked:    maskCardPayload(payload),
		withAppID: true,
	}
	env, raw, err := s.do(ctx, call)
	if err != nil {
		return nil, err
	}

	var result struct {
		SubscriptionID string `json:"subscriptionId"`
		Profile        struct {
			OriginalTransactionID string `json:"originalTransactionId"`
			ExpireDate            string `json:"expireDate"`
		} `json:"profile"`
		Package struct {
			PackageID string `json:"packageId"`
		} `json:"package"`
	}
	if len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, &result); err != nil {
			return nil, s.malformed(call, raw, err)
		}
	}

	out := &StartSubscriptionResult{
		ZotloSubscriptionID: result.Profile.OriginalTransactionID,
		ExpireDate:          result.Profile.ExpireDate,
		PackageID:           result.Package.PackageID,
		Raw:                 raw,
	}
	if out.ZotloSubscriptionID == "" {
		out.ZotloSubscriptionID = result.SubscriptionID
	}
	if out.PackageID == "" {
		out.PackageID = req.PackageID
	}
	return out, nil
}

func (s *zotloService) ListSubscriptions(ctx context.Context, subscriberID string) ([]models.RemoteSubscription, error) {
	query := url.Values{}
	query.Set("subscriberId", subscriberID)
	query.Set("appId", s.cfg.AppID)
	call := zotloCall{
		operation: OpListSubscriptions,
		method:    http.MethodGet,
		path:      "/v1/subscription/list",
		query:     query,
		masked:    map[string]any{"subscriberId": subscriberID},
	}
	env, raw, err := s.do(ctx, call)
	if err != nil {
		return nil, err
	}

	var subscriptions []models.RemoteSubscription
	if len(env.Result) > 0 && !bytes.Equal(bytes.TrimSpace(env.Result), []byte("null")) {
		if err := json.Unmarshal(env.Result, &subscriptions); err != nil {
			return nil, s.malformed(call, raw, err)
		}
	}
	return subscriptions, nil
}

func (s *zotloService) CancelSubscription(ctx context.Context, req CancelSubscriptionRequest) (*CancelResult, error) {
	reason := req.Reason
	if reason == "" {
		reason = "user_request"
	}
	force := 0
	if req.Force {
		force = 1
	}
	payload := map[string]any{
		"subscriberId":       req.SubscriberID,
		"packageId":          req.PackageID,
		"cancellationReason": reason,
		"force":              force,
	}
	call := zotloCall{
		operation: OpCancelSubscription,
		method:    http.MethodPost,
		path:      "/v1/subscription/cancellation",
		body:      payload,
		masked:    payload,
		withAppID: true,
	}
	_, raw, err := s.do(ctx, call)
	if err != nil {
		return nil, err
	}
	return &CancelResult{Raw: raw}, nil
}

func (s *zotloService) ListSavedCards(ctx context.Context, subscriberID string) (*SavedCardsResult, error) {
	query := url.Values{}
	query.Set("subscriberId", subscriberID)
	call := zotloCall{
		operation: OpListSavedCards,
		method:    http.MethodGet,
		path:      "/v1/subscription/card-list",
		query:     query,
		masked:    map[string]any{"subscriberId": subscriberID},
		withAppID: true,
	}
	env, raw, err := s.do(ctx, call)
	if err != nil {
		return nil, err
	}

	var result struct {
		CardList []models.Card `json:"cardList"`
	}
	if len(env.Result) > 0 && !bytes.Equal(bytes.TrimSpace(env.Result), []byte("null")) {
		if err := json.Unmarshal(env.Result, &result); err != nil {
			return nil, s.malformed(call, raw, err)
		}
	}
	cards := result.CardList
	if cards == nil {
		cards = []models.Card{}
	}
	return &SavedCardsResult{Cards: cards, Raw: raw}, nil
}

type zotloCall struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      map[string]any
	masked    map[string]any
	withAppID bool
}

type attemptResult struct {
	status int
	body   []byte
}

// errRetryableStatus marks a 5xx response so the retry loop tries again.
var errRetryableStatus = errors.New("zotlo returned a server error")

// do sends the call with the configured retry policy. Network errors and 5xx
// responses are retried; anything else is returned as is.
func (s *zotloService) do(ctx context.Context, call zotloCall) (zotloEnvelope, json.RawMessage, error) {
	var body []byte
	if call.body != nil {
		encoded, err := json.Marshal(call.body)
		if err != nil {
			return zotloEnvelope{}, nil, &ProviderError{
				Operation: call.operation,
				Payload:   call.masked,
				Message:   "failed to encode request",
				Err:       err,
			}
		}
		body = encoded
	}

	attempts := s.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := s.cfg.RetryDelay
	if delay <= 0 {
		delay = time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(delay))

	start := time.Now()
	attempt := 0
	var last attemptResult
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		res, err := s.send(ctx, call, body)
		if err != nil {
			return retry.RetryableError(err)
		}
		last = res
		if res.status >= http.StatusInternalServerError {
			return retry.RetryableError(errRetryableStatus)
		}
		return nil
	})
	duration := time.Since(start)
	metrics.ZotloRequestDuration.WithLabelValues(call.operation).Observe(duration.Seconds())

	var env zotloEnvelope
	if len(last.body) > 0 {
		// Non-JSON bodies are kept raw; the envelope just stays empty.
		_ = json.Unmarshal(last.body, &env)
	}
	meta := decodeMeta(env.Meta)

	fields := []zap.Field{
		zap.String("operation", call.operation),
		zap.Int("status", last.status),
		zap.Any("meta", meta),
		zap.Int("attempts", attempt),
		zap.Duration("duration", duration),
	}

	// A context that ends while waiting to retry a 5xx keeps the last response.
	if err != nil && !errors.Is(err, errRetryableStatus) && last.status == 0 {
		metrics.ZotloRequestsCount.WithLabelValues(call.operation, metrics.OutcomeFailure).Inc()
		s.logger.Error("Zotlo request failed", append(fields, zap.Any("payload", call.masked), zap.String("error", maskText(err.Error())))...)
		return env, nil, &ProviderError{
			Operation: call.operation,
			Payload:   call.masked,
			Message:   "Zotlo is unreachable: " + maskText(err.Error()),
			Err:       err,
		}
	}

	if last.status < 200 || last.status >= 300 {
		metrics.ZotloRequestsCount.WithLabelValues(call.operation, metrics.OutcomeFailure).Inc()
		s.logger.Warn("Zotlo request rejected", append(fields, zap.Any("payload", call.masked))...)
		return env, nil, &ProviderError{
			Operation:  call.operation,
			Payload:    call.masked,
			Response:   last.body,
			HTTPStatus: last.status,
			Message:    s.errorMessage(call.operation, env.Meta),
			Err:        retryInterruption(err),
		}
	}

	metrics.ZotloRequestsCount.WithLabelValues(call.operation, metrics.OutcomeSuccess).Inc()
	s.logger.Info("Zotlo request completed", fields...)
	return env, last.body, nil
}

// retryInterruption keeps a context error that cut the retries short.
func retryInterruption(err error) error {
	if err == nil || errors.Is(err, errRetryableStatus) {
		return nil
	}
	return err
}

func (s *zotloService) send(ctx context.Context, call zotloCall, body []byte) (attemptResult, error) {
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + call.path
	if len(call.query) > 0 {
		endpoint += "?" + call.query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, call.method, endpoint, reader)
	if err != nil {
		return attemptResult{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("AccessKey", s.cfg.AccessKey)
	req.Header.Set("AccessSecret", s.cfg.AccessSecret)
	req.Header.Set("Language", s.cfg.Language)
	if call.withAppID {
		req.Header.Set("ApplicationId", s.cfg.AppID)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return attemptResult{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return attemptResult{}, fmt.Errorf("failed to read response: %w", err)
	}
	return attemptResult{status: resp.StatusCode, body: respBody}, nil
}

func (s *zotloService) errorMessage(operation string, rawMeta json.RawMessage) string {
	var meta zotloMeta
	if len(rawMeta) > 0 && json.Unmarshal(rawMeta, &meta) == nil && strings.TrimSpace(meta.ErrorMessage) != "" {
		return meta.ErrorMessage
	}
	return defaultProviderMessages[operation]
}

func (s *zotloService) malformed(call zotloCall, raw json.RawMessage, err error) error {
	metrics.ZotloRequestsCount.WithLabelValues(call.operation, "malformed").Inc()
	s.logger.Error("Zotlo response could not be decoded", zap.String("operation", call.operation), zap.Error(err))
	return &ProviderError{
		Operation:  call.operation,
		Payload:    call.masked,
		Response:   raw,
		HTTPStatus: http.StatusBadGateway,
		Message:    "unexpected response format from Zotlo",
		Err:        err,
	}
}

func decodeMeta(raw json.RawMessage) any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var meta any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return map[string]any{}
	}
	return meta
}
