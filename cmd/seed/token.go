package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/utafrali/brand-service/internal/auth"
	"github.com/utafrali/brand-service/internal/config"
	"github.com/utafrali/brand-service/pkg/database"
)

// revoker is the part of auth.RevocationStore the seeder uses.
type revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

// issueToken writes a signed access token for userID and role to w, so a
// freshly seeded database can be exercised with an identified caller.
func issueToken(w io.Writer, jwtm *auth.JWTManager, userID, role string) error {
	token, err := jwtm.GenerateAccessToken(userID, "", role)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}

// revokeToken puts the ID of token on the revocation list until the token
// expires. Tokens that already expired need no entry.
func revokeToken(ctx context.Context, jwtm *auth.JWTManager, store revoker, token string, now time.Time) (bool, error) {
	claims, err := jwtm.ValidateAccessToken(token)
	if err != nil {
		return false, err
	}
	if claims.ID == "" {
		return false, fmt.Errorf("token carries no ID")
	}

	ttl := claims.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return false, nil
	}
	if err := store.Revoke(ctx, claims.ID, ttl); err != nil {
		return false, err
	}
	return true, nil
}

func runRevoke(ctx context.Context, cfg *config.Config, token string, log *slog.Logger) error {
	redisCfg := database.DefaultRedisConfig()
	redisCfg.URL = cfg.RedisURL
	redisCfg.Password = cfg.RedisPassword

	client, err := database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer client.Close()

	jwtm := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTIssuer)
	revoked, err := revokeToken(ctx, jwtm, auth.NewRevocationStore(client), token, time.Now())
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	log.Info("token revocation processed", slog.Bool("revoked", revoked))
	return nil
}
