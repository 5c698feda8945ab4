package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vncsmyrnk/pollcore/internal/core/domain"
	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

const passwordResetTTL = time.Hour

type accountService struct {
	userRepo ports.UserRepository
	notifier ports.NotificationDispatcher
	clock    ports.Clock
	logger   *slog.Logger
}

func NewAccountService(userRepo ports.UserRepository, notifier ports.NotificationDispatcher, opts ...Option) ports.AccountService {
	o := resolveOptions(opts)
	return &accountService{
		userRepo: userRepo,
		notifier: notifier,
		clock:    o.clock,
		logger:   o.logger,
	}
}

func (s *accountService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// RequestPasswordReset stores a hashed one-time token and hands the plain
// token to the mail worker. Unknown emails succeed silently.
func (s *accountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.NewValidationError("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := s.generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	entry := &domain.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: s.hashToken(token),
		ExpiresAt: s.clock.Now().Add(passwordResetTTL),
	}
	if err := s.userRepo.StorePasswordResetToken(ctx, entry); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	s.notifier.Dispatch(ctx, domain.PasswordResetRequested(user.ID, token))
	return nil
}

func (s *accountService) generateToken() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (s *accountService) hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
