package gateway

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrSessionRejected is returned when Midtrans answers without a usable session.
var ErrSessionRejected = errors.New("midtrans: session rejected")

// MidtransClient calls the Snap API.
type MidtransClient struct {
	baseURL    string
	serverKey  string
	httpClient *http.Client
}

var _ Gateway = (*MidtransClient)(nil)

// NewMidtransClient builds a Snap client. baseURL is the Snap host, e.g.
// https://app.sandbox.midtrans.com.
func NewMidtransClient(serverKey, baseURL string, timeout time.Duration) *MidtransClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MidtransClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serverKey:  serverKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type snapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// CreateSession posts a Snap transaction and returns its token and redirect URL.
func (c *MidtransClient) CreateSession(ctx context.Context, sessionReq SessionRequest) (*Session, error) {
	payload, err := json.Marshal(sessionReq)
	if err != nil {
		return nil, fmt.Errorf("midtrans request marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/snap/v1/transactions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("midtrans request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.serverKey+":")))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("midtrans request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("midtrans response read: %w", err)
	}

	var snapResp snapResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &snapResp); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("midtrans response unmarshal: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := strings.Join(snapResp.ErrorMessages, "; ")
		if reason == "" {
			reason = strings.TrimSpace(string(body))
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrSessionRejected, resp.StatusCode, reason)
	}

	if snapResp.Token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrSessionRejected)
	}

	redirect := snapResp.RedirectURL
	if redirect == "" {
		redirect = c.baseURL + "/snap/v2/vtweb/" + snapResp.Token
	}

	return &Session{Token: snapResp.Token, RedirectURL: redirect}, nil
}

// NotificationSignature computes the signature_key Midtrans attaches to HTTP
// notifications: hex(SHA-512(order_id + status_code + gross_amount + server_key)).
func NotificationSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifyNotificationSignature reports whether signature matches the notification fields.
func VerifyNotificationSignature(orderID, statusCode, grossAmount, serverKey, signature string) bool {
	expected := NotificationSignature(orderID, statusCode, grossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}
