package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/utafrali/brand-service/pkg/middleware"
)

// ErrTokenRevoked is returned for a token whose ID is on the revocation list.
var ErrTokenRevoked = errors.New("token has been revoked")

// Claims represents the JWT claims for an access token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates HS256 access tokens.
type JWTManager struct {
	secret       []byte
	accessExpiry time.Duration
	issuer       string
	now          func() time.Time
}

// NewJWTManager creates a new JWT manager. An empty issuer disables the
// issuer check.
func NewJWTManager(secret string, accessExpiry time.Duration, issuer string) *JWTManager {
	return &JWTManager{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
		issuer:       issuer,
		now:          time.Now,
	}
}

// GenerateAccessToken creates a signed access token for userID. Each token
// gets a unique ID so it can be revoked individually.
func (m *JWTManager) GenerateAccessToken(userID, email, role string) (string, error) {
	now := m.now().UTC()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessExpiry)),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signedToken, nil
}

// ValidateAccessToken parses and validates an access token, returning the claims.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}

	return claims, nil
}

// RevocationChecker reports whether a token ID has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// IdentityValidator adapts the manager to middleware.Identify. When revoked
// is non-nil, tokens carrying a revoked ID are rejected.
func (m *JWTManager) IdentityValidator(revoked RevocationChecker) middleware.IdentityValidator {
	return func(ctx context.Context, token string) (*middleware.Identity, error) {
		claims, err := m.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}

		if revoked != nil && claims.ID != "" {
			isRevoked, err := revoked.IsRevoked(ctx, claims.ID)
			if err != nil {
				return nil, fmt.Errorf("check token revocation: %w", err)
			}
			if isRevoked {
				return nil, ErrTokenRevoked
			}
		}

		return &middleware.Identity{UserID: claims.UserID, Role: claims.Role}, nil
	}
}
