package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nicopel-ti/helpdesk/internal/auth"
	"github.com/nicopel-ti/helpdesk/internal/domain"
	"github.com/nicopel-ti/helpdesk/internal/repository"
	apperrors "github.com/nicopel-ti/helpdesk/pkg/util/errorutil"
)

// AuthService provisions accounts and mints access tokens for operators.
// Interactive login is out of scope; tokens come from the CLI.
type AuthService struct {
	store    repository.Store
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(store repository.Store, tokenMgr *auth.TokenManager) *AuthService {
	return &AuthService{store: store, tokenMgr: tokenMgr}
}

// ProvisionUser creates a user with the given role.
func (s *AuthService) ProvisionUser(ctx context.Context, name, email string, role domain.UserRole) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	details := map[string]any{}
	if name == "" {
		details["name"] = "required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		details["email"] = "invalid"
	}
	if !role.Valid() {
		details["role"] = "must be USER or ADMIN"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid user", details)
	}

	user := &domain.User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Role:  role,
	}
	if err := s.store.Repositories().Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IssueToken mints an access token for an existing user.
func (s *AuthService) IssueToken(ctx context.Context, userID string) (string, time.Time, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return "", time.Time{}, apperrors.NewNotFound("user", map[string]any{"id": userID})
	}
	user, err := s.store.Repositories().Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, apperrors.NewNotFound("user", map[string]any{"id": userID})
		}
		return "", time.Time{}, err
	}
	return s.tokenMgr.GenerateToken(user.ID, user.Role)
}
