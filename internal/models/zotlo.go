package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// RemoteSubscription is a subscription record as reported by Zotlo.
type RemoteSubscription struct {
	OriginalTransactionID string             `json:"originalTransactionId"`
	Package               string             `json:"package"`
	RealStatus            string             `json:"realStatus"`
	Status                string             `json:"status"`
	ExpireDate            string             `json:"expireDate"`
	StartDate             string             `json:"startDate"`
	Cancellation          CancellationMarker `json:"cancellation,omitempty"`
}

// RemoteStatus returns realStatus, falling back to status.
func (r RemoteSubscription) RemoteStatus() string {
	if strings.TrimSpace(r.RealStatus) != "" {
		return r.RealStatus
	}
	return r.Status
}

// CancellationMarker keeps the provider's cancellation field as raw JSON.
// Zotlo sends anything from null to a full object here.
type CancellationMarker json.RawMessage

func (m CancellationMarker) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return m, nil
}

func (m *CancellationMarker) UnmarshalJSON(data []byte) error {
	if m == nil {
		return nil
	}
	*m = append((*m)[0:0], data...)
	return nil
}

// Present reports whether the marker carries a non-empty value.
func (m CancellationMarker) Present() bool {
	raw := bytes.TrimSpace(m)
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		s := strings.TrimSpace(val)
		return s != "" && s != "0"
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	}
	return true
}

// Card is a saved card as returned by the provider. The shape is provider owned
// and passed through untouched.
type Card map[string]any
