package services

import (
	"context"
	"errors"
	"strings"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs identity tokens
type TokenIssuer interface {
	Issue(subject, email, role string) (string, error)
}

type authService struct {
	adminRepo repositories.AdminUserRepository
	tokens    TokenIssuer
	log       *zap.Logger
}

// NewAuthService creates a new AuthService implementation
func NewAuthService(adminRepo repositories.AdminUserRepository, tokens TokenIssuer, log *zap.Logger) AuthService {
	return &authService{
		adminRepo: adminRepo,
		tokens:    tokens,
		log:       log.Named("auth"),
	}
}

// Login checks an administrator's credentials and returns a signed token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.adminRepo.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return "", newError(KindUnauthorized, "invalid credentials")
	}
	if err != nil {
		s.log.Error("load admin user failed", zap.Error(err))
		return "", internalError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		s.log.Warn("admin login rejected", zap.String("email", email))
		return "", newError(KindUnauthorized, "invalid credentials")
	}

	role := user.Role
	if role == "" {
		role = models.RoleAdmin
	}
	token, err := s.tokens.Issue(user.ID.Hex(), user.Email, role)
	if err != nil {
		return "", internalError(err)
	}
	s.log.Info("admin logged in", zap.String("admin_id", user.ID.Hex()))
	return token, nil
}

// EnsureAdmin creates the bootstrap administrator if no account uses email
func (s *authService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	_, err := s.adminRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.adminRepo.Create(ctx, &models.AdminUser{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Role:     models.RoleAdmin,
	})
	if errors.Is(err, repositories.ErrDuplicate) {
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Info("bootstrap admin created", zap.String("email", email))
	return nil
}
