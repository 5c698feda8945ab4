package ports

import (
	"context"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	StorePasswordResetToken(ctx context.Context, token *domain.PasswordResetToken) error
}

type AccountService interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
}
