package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/adikrnwn171/project-ticket-be/internal/models"
)

// TokenType separates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the payload carried by every issued token.
type Claims struct {
	UserID   uint      `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Type     TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller derived from an access token.
type Principal struct {
	ID       uint
	Username string
	Email    string
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// CredentialConfig holds the signing keys and token lifetimes.
type CredentialConfig struct {
	KeyID        string
	Secret       string
	PreviousKeys map[string]string
	Issuer       string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// CredentialService issues and verifies HS256 bearer tokens. New tokens are
// signed with the current key; tokens signed with a previous key still verify
// until they expire.
type CredentialService struct {
	keyID      string
	keys       map[string][]byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type CredentialOption func(*CredentialService)

// WithCredentialClock overrides the clock used for issuing and validating tokens.
func WithCredentialClock(now func() time.Time) CredentialOption {
	return func(s *CredentialService) {
		s.now = now
	}
}

func NewCredentialService(cfg CredentialConfig, opts ...CredentialOption) (*CredentialService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("credential service: signing secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("credential service: token lifetimes must be positive")
	}
	if cfg.KeyID == "" {
		cfg.KeyID = "primary"
	}

	keys := map[string][]byte{cfg.KeyID: []byte(cfg.Secret)}
	for kid, secret := range cfg.PreviousKeys {
		if kid == cfg.KeyID {
			return nil, fmt.Errorf("credential service: previous key %q shadows the current key", kid)
		}
		keys[kid] = []byte(secret)
	}

	s := &CredentialService{
		keyID:      cfg.KeyID,
		keys:       keys,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs an access and a refresh token for a persisted user.
func (s *CredentialService) Issue(user *models.User) (*TokenPair, error) {
	if user == nil || user.ID == 0 {
		return nil, errors.New("credential service: cannot issue a token for an unsaved user")
	}

	now := s.now()
	access, accessExp, err := s.sign(user, TokenTypeAccess, now, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.sign(user, TokenTypeRefresh, now, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresAt:        accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *CredentialService) sign(user *models.User, typ TokenType, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID:   user.ID,
		Username: user.Name,
		Email:    user.Email,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = s.keyID

	signed, err := token.SignedString(s.keys[s.keyID])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, expiresAt, nil
}

// Verify validates an access token.
func (s *CredentialService) Verify(tokenString string) (*Claims, error) {
	return s.verify(tokenString, TokenTypeAccess)
}

// VerifyRefresh validates a refresh token.
func (s *CredentialService) VerifyRefresh(tokenString string) (*Claims, error) {
	return s.verify(tokenString, TokenTypeRefresh)
}

func (s *CredentialService) verify(tokenString string, want TokenType) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, Unauthorized("missing token")
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFor, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, Unauthorized("token expired")
		}
		return nil, Unauthorized("invalid token")
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, Unauthorized("invalid token")
	}
	if claims.Type != want {
		return nil, Unauthorized("invalid token type")
	}
	return claims, nil
}

func (s *CredentialService) keyFor(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		kid = s.keyID
	}
	key, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}

// Principal converts verified claims into the caller identity.
func (c *Claims) Principal() Principal {
	return Principal{ID: c.UserID, Username: c.Username, Email: c.Email}
}

// ParseAuthorizationHeader extracts the token from "Bearer <token>".
func ParseAuthorizationHeader(header string) (string, error) {
	if header == "" {
		return "", Unauthorized("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", Unauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
