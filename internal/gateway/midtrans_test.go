package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMidtransClient_CreateSession(t *testing.T) {
	var got SessionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/snap/v1/transactions", r.URL.Path)
		assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("SB-key:")), r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"tok-123","redirect_url":"https://pay.example/tok-123"}`))
	}))
	defer srv.Close()

	client := NewMidtransClient("SB-key", srv.URL+"/", time.Second)
	session, err := client.CreateSession(context.Background(), SessionRequest{
		TransactionDetails: TransactionDetails{OrderID: "42", GrossAmount: 1500000},
		CustomerDetails:    &CustomerDetails{FirstName: "Ana", Email: "ana@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "tok-123", session.Token)
	assert.Equal(t, "https://pay.example/tok-123", session.RedirectURL)
	assert.Equal(t, "42", got.TransactionDetails.OrderID)
	assert.Equal(t, int64(1500000), got.TransactionDetails.GrossAmount)
	assert.Equal(t, "Ana", got.CustomerDetails.FirstName)
}

func TestMidtransClient_CreateSessionFallbackRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"tok-9"}`))
	}))
	defer srv.Close()

	session, err := NewMidtransClient("key", srv.URL, time.Second).CreateSession(context.Background(), SessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/snap/v2/vtweb/tok-9", session.RedirectURL)
}

func TestMidtransClient_CreateSessionErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rejected", http.StatusBadRequest, `{"error_messages":["transaction_details.order_id has already been taken"]}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"empty token", http.StatusCreated, `{"redirect_url":"https://pay.example"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			session, err := NewMidtransClient("key", srv.URL, time.Second).CreateSession(context.Background(), SessionRequest{})
			assert.Nil(t, session)
			assert.ErrorIs(t, err, ErrSessionRejected)
		})
	}
}

func TestMidtransClient_CreateSessionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewMidtransClient("key", srv.URL, 20*time.Millisecond).CreateSession(context.Background(), SessionRequest{})
	assert.Error(t, err)
}

func TestVerifyNotificationSignature(t *testing.T) {
	sig := NotificationSignature("42", "200", "1500000.00", "server-key")

	assert.Len(t, sig, 128)
	assert.True(t, VerifyNotificationSignature("42", "200", "1500000.00", "server-key", sig))
	assert.False(t, VerifyNotificationSignature("42", "200", "1.00", "server-key", sig))
	assert.False(t, VerifyNotificationSignature("42", "200", "1500000.00", "other-key", sig))
	assert.False(t, VerifyNotificationSignature("42", "200", "1500000.00", "server-key", ""))
}
