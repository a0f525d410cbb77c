package port

import (
	"context"
	"time"

	"github.com/rl1809/apartment-sales/internal/core/domain"
)

type TokenService interface {
	GenerateToken(ctx context.Context, user *domain.User, ttl time.Duration) (string, error)
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
}
