package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adikrnwn171/project-ticket-be/internal/models"
)

func newTestCredentials(t *testing.T, now func() time.Time, mutate ...func(*CredentialConfig)) *CredentialService {
	t.Helper()
	cfg := CredentialConfig{
		KeyID:      "k1",
		Secret:     "test-secret",
		Issuer:     "ticketing-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	svc, err := NewCredentialService(cfg, WithCredentialClock(now))
	require.NoError(t, err)
	return svc
}

func testUser() *models.User {
	u := &models.User{Name: "ana", Email: "ana@example.com"}
	u.ID = 7
	return u
}

func TestCredentialService_RoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestCredentials(t, func() time.Time { return now })

	pair, err := svc.Issue(testUser())
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, now.Add(15*time.Minute), pair.ExpiresAt)

	claims, err := svc.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.NotEmpty(t, claims.RegisteredClaims.ID)
	assert.Equal(t, Principal{ID: 7, Username: "ana", Email: "ana@example.com"}, claims.Principal())

	refresh, err := svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), refresh.UserID)
}

func TestCredentialService_IssueRequiresPersistedUser(t *testing.T) {
	svc := newTestCredentials(t, time.Now)

	_, err := svc.Issue(&models.User{Email: "x@example.com"})
	assert.Error(t, err)
	_, err = svc.Issue(nil)
	assert.Error(t, err)
}

func TestCredentialService_Expired(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := now
	svc := newTestCredentials(t, func() time.Time { return clock })

	pair, err := svc.Issue(testUser())
	require.NoError(t, err)

	clock = now.Add(16 * time.Minute)
	_, err = svc.Verify(pair.AccessToken)
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Contains(t, err.Error(), "expired")

	_, err = svc.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestCredentialService_RejectsForeignAndMalformedTokens(t *testing.T) {
	svc := newTestCredentials(t, time.Now)
	other := newTestCredentials(t, time.Now, func(c *CredentialConfig) { c.Secret = "another-secret" })

	pair, err := other.Issue(testUser())
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong key": pair.AccessToken,
		"garbage":   "not-a-jwt",
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(token)
			require.Error(t, err)
			assert.Equal(t, KindUnauthorized, KindOf(err))
		})
	}
}

func TestCredentialService_RejectsOtherAlgorithms(t *testing.T) {
	svc := newTestCredentials(t, time.Now)

	claims := Claims{
		UserID: 7,
		Type:   TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "ticketing-test",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	token.Header["kid"] = "k1"
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(unsigned)
	assert.Error(t, err)
}

func TestCredentialService_RequiresExpiry(t *testing.T) {
	svc := newTestCredentials(t, time.Now)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           7,
		Type:             TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "ticketing-test"},
	})
	token.Header["kid"] = "k1"
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.Error(t, err)
}

func TestCredentialService_TokenTypeIsEnforced(t *testing.T) {
	svc := newTestCredentials(t, time.Now)
	pair, err := svc.Issue(testUser())
	require.NoError(t, err)

	_, err = svc.Verify(pair.RefreshToken)
	assert.Error(t, err)
	_, err = svc.VerifyRefresh(pair.AccessToken)
	assert.Error(t, err)
}

func TestCredentialService_KeyRotation(t *testing.T) {
	old := newTestCredentials(t, time.Now, func(c *CredentialConfig) {
		c.KeyID = "k0"
		c.Secret = "old-secret"
	})
	pair, err := old.Issue(testUser())
	require.NoError(t, err)

	rotated := newTestCredentials(t, time.Now, func(c *CredentialConfig) {
		c.KeyID = "k1"
		c.Secret = "new-secret"
		c.PreviousKeys = map[string]string{"k0": "old-secret"}
	})
	claims, err := rotated.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)

	retired := newTestCredentials(t, time.Now, func(c *CredentialConfig) {
		c.KeyID = "k1"
		c.Secret = "new-secret"
	})
	_, err = retired.Verify(pair.AccessToken)
	assert.Error(t, err)

	fresh, err := rotated.Issue(testUser())
	require.NoError(t, err)
	parsed, _, err := jwt.NewParser().ParseUnverified(fresh.AccessToken, &Claims{})
	require.NoError(t, err)
	assert.Equal(t, "k1", parsed.Header["kid"])
}

func TestNewCredentialService_Validation(t *testing.T) {
	_, err := NewCredentialService(CredentialConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewCredentialService(CredentialConfig{Secret: "s", RefreshTTL: time.Hour})
	assert.Error(t, err)

	_, err = NewCredentialService(CredentialConfig{
		KeyID: "k1", Secret: "s", AccessTTL: time.Minute, RefreshTTL: time.Hour,
		PreviousKeys: map[string]string{"k1": "other"},
	})
	assert.Error(t, err)
}

func TestParseAuthorizationHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "abc", false},
		{"", "", true},
		{"abc.def.ghi", "", true},
		{"Basic dXNlcjpwYXNz", "", true},
		{"Bearer ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ParseAuthorizationHeader(tt.header)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindUnauthorized, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
