package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"subsync/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestZotlo(t *testing.T, handler http.HandlerFunc) (ZotloService, *observer.ObservedLogs) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	core, logs := observer.New(zap.DebugLevel)
	cfg := config.ZotloConfig{
		AccessKey:     "key",
		AccessSecret:  "secret",
		AppID:         "77",
		BaseURL:       server.URL,
		Language:      "tr",
		Timeout:       2 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}
	return NewZotloService(cfg, zap.New(core)), logs
}

func cardRequest() StartSubscriptionRequest {
	return StartSubscriptionRequest{
		CardNo:                "4111111111111111",
		CardOwner:             "Ada Lovelace",
		ExpireMonth:           "12",
		ExpireYear:            "29",
		CVV:                   "123",
		PackageID:             "premium_monthly",
		SubscriberID:          "sub-1",
		SubscriberPhoneNumber: "+905551112233",
		SubscriberCountry:     "TR",
		SubscriberIPAddress:   "10.0.0.1",
		RedirectURL:           "https://example.com/done",
	}
}

func TestStartSubscription_Success(t *testing.T) {
	var got map[string]any
	svc, _ := newTestZotlo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment/credit-card", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("AccessKey"))
		assert.Equal(t, "secret", r.Header.Get("AccessSecret"))
		assert.Equal(t, "tr", r.Header.Get("Language"))
		assert.Equal(t, "77", r.Header.Get("ApplicationId"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"meta":{"httpStatus":200},"result":{"profile":{"originalTransactionId":"T1","expireDate":"2025-12-31 23:59:59"},"package":{"packageId":"premium_yearly"}}}`)
	})

	res, err := svc.StartSubscription(context.Background(), cardRequest())
	require.NoError(t, err)
	assert.Equal(t, "T1", res.ZotloSubscriptionID)
	assert.Equal(t, "2025-12-31 23:59:59", res.ExpireDate)
	assert.Equal(t, "premium_yearly", res.PackageID)
	assert.Equal(t, "4111111111111111", got["cardNo"])
	assert.Equal(t, "tr", got["language"])
	assert.Equal(t, "web", got["platform"])
}

func TestStartSubscription_FallsBackToSubscriptionID(t *testing.T) {
	svc, _ := newTestZotlo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"meta":{},"result":{"subscriptionId":"S-9"}}`)
	})

	res, err := svc.StartSubscription(context.Background(), cardRequest())
	require.NoError(t, err)
	assert.Equal(t, "S-9", res.ZotloSubscriptionID)
	assert.Equal(t, "premium_monthly", res.PackageID)
}

func TestStartSubscription_RejectedIsMasked(t *testing.T) {
	var calls int32
	svc, logs := newTestZotlo(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"meta":{"errorMessage":"Card declined"}}`)
	})

	_, err := svc.StartSubscription(context.Background(), cardRequest())
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, OpStartSubscription, perr.Operation)
	assert.Equal(t, http.StatusBadRequest, perr.HTTPStatus)
	assert.Equal(t, "Card declined", perr.Message)
	assert.Equal(t, "************1111", perr.Payload["cardNo"])
	assert.Equal(t, "***", perr.Payload["cvv"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx must not be retried")

	assert.NotContains(t, err.Error(), "4111111111111111")
	for _, entry := range logs.All() {
		for _, field := range entry.Context {
			encoded, _ := json.Marshal(field.Interface)
			assert.NotContains(t, string(encoded), "4111111111111111")
			assert.NotContains(t, field.String, "4111111111111111")
		}
	}
}

func TestListSubscriptions_RetriesServerErrors(t *testing.T) {
	var calls int32
	svc, _ := newTestZotlo(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Empty(t, r.Header.Get("ApplicationId"))
		assert.Equal(t, "sub-1", r.URL.Query().Get("subscriberId"))
		assert.Equal(t, "77", r.URL.Query().Get("appId"))
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"meta":{},"result":[{"originalTransactionId":"T1","package":"premium","realStatus":"active","startDate":"2024-01-01","cancellation":null}]}`)
	})

	subs, err := svc.ListSubscriptions(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "T1", subs[0].OriginalTransactionID)
	assert.False(t, subs[0].Cancellation.Present())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestListSubscriptions_ExhaustedRetries(t *testing.T) {
	var calls int32
	svc, _ := newTestZotlo(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := svc.ListSubscriptions(context.Background(), "sub-1")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusServiceUnavailable, perr.HTTPStatus)
	assert.Equal(t, "Could not retrieve the subscription list.", perr.Message)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestListSubscriptions_DeadlineDuringRetryKeepsLastResponse(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"meta":{"errorMessage":"maintenance"}}`)
	}))
	t.Cleanup(server.Close)
	svc := NewZotloService(config.ZotloConfig{BaseURL: server.URL, Timeout: time.Second, RetryAttempts: 3, RetryDelay: 5 * time.Second}, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := svc.ListSubscriptions(ctx, "sub-1")

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusServiceUnavailable, perr.HTTPStatus)
	assert.JSONEq(t, `{"meta":{"errorMessage":"maintenance"}}`, string(perr.Response))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestListSubscriptions_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	svc := NewZotloService(config.ZotloConfig{BaseURL: url, Timeout: time.Second, RetryAttempts: 2, RetryDelay: time.Millisecond}, zap.NewNop())
	_, err := svc.ListSubscriptions(context.Background(), "sub-1")

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 0, perr.HTTPStatus)
	assert.Equal(t, http.StatusBadGateway, perr.StatusCode())
}

func TestCancelSubscription_Payload(t *testing.T) {
	var got map[string]any
	svc, _ := newTestZotlo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscription/cancellation", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"meta":{},"result":{"status":"cancelled"}}`)
	})

	res, err := svc.CancelSubscription(context.Background(), CancelSubscriptionRequest{SubscriberID: "sub-1", PackageID: "premium", Force: true})
	require.NoError(t, err)
	assert.Equal(t, "user_request", got["cancellationReason"])
	assert.Equal(t, float64(1), got["force"])
	assert.Equal(t, "premium", got["packageId"])
	assert.True(t, strings.Contains(string(res.Raw), "cancelled"))
}

func TestListSavedCards(t *testing.T) {
	svc, _ := newTestZotlo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscription/card-list", r.URL.Path)
		assert.Equal(t, "77", r.Header.Get("ApplicationId"))
		_, _ = io.WriteString(w, `{"meta":{},"result":{"cardList":[{"cardNumber":"411111******1111"},{"cardNumber":"550000******0004"}]}}`)
	})

	res, err := svc.ListSavedCards(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Len(t, res.Cards, 2)
	assert.Equal(t, "411111******1111", res.Cards[0]["cardNumber"])
}

func TestListSavedCards_EmptyResult(t *testing.T) {
	svc, _ := newTestZotlo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"meta":{},"result":null}`)
	})

	res, err := svc.ListSavedCards(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.NotNil(t, res.Cards)
	assert.Empty(t, res.Cards)
}

func TestMaskCardNumber(t *testing.T) {
	tests := map[string]string{
		"4111111111111111": "************1111",
		"1234":             "1234",
		"12345":            "*2345",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, maskCardNumber(in), in)
	}
	assert.Equal(t, "card ************0004 used", maskCardNumber("card 5500000000000004 used"))
}

func TestMaskCardPayload_LeavesInputUntouched(t *testing.T) {
	in := map[string]any{"cardNo": "4111111111111111", "cvv": "999", "cardOwner": "Ada"}
	out := maskCardPayload(in)

	assert.Equal(t, "************1111", out["cardNo"])
	assert.Equal(t, "***", out["cvv"])
	assert.Equal(t, "Ada", out["cardOwner"])
	assert.Equal(t, "4111111111111111", in["cardNo"])
}
