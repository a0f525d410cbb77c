package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rl1809/apartment-sales/internal/core/domain"
	"github.com/rl1809/apartment-sales/internal/port"
)

type AuthService struct {
	store  port.Store
	tokens port.TokenService
	ttl    time.Duration
	logger port.LoggerPort
}

func NewAuthService(store port.Store, tokens port.TokenService, ttl time.Duration, logger port.LoggerPort) *AuthService {
	return &AuthService{store: store, tokens: tokens, ttl: ttl, logger: logger}
}

// Login returns a signed access token. Unknown users and wrong passwords
// are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if user == nil || !user.CheckPassword(password) {
		s.logger.Warn("login rejected", port.Fields{"username": username})
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(ctx, user, s.ttl)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

func (s *AuthService) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	return s.tokens.ValidateToken(ctx, token)
}

// SeedAdmin creates the admin account unless a user with that name exists.
func (s *AuthService) SeedAdmin(ctx context.Context, username, password string) error {
	user, err := domain.NewUser(username, password, domain.RoleAdmin)
	if err != nil {
		return err
	}

	created := false
	err = s.store.WithinTx(ctx, func(tx port.StoreTx) error {
		existing, err := tx.GetUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		created = true
		return tx.InsertUser(ctx, *user)
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if created {
		s.logger.Info("admin user seeded", port.Fields{"username": username})
	}
	return nil
}
