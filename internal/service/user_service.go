package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"smartsahuji/internal/apperr"
	"smartsahuji/internal/auth"
	"smartsahuji/internal/config"
	"smartsahuji/internal/model"
	"smartsahuji/internal/repository"
	"smartsahuji/pkg/pagination"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

// DTOs for Request validation
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"omitempty,min=6"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	LastLoginAt string    `json:"last_login_at,omitempty"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

// AuthResult is what a successful login or refresh hands back.
type AuthResult struct {
	AccessToken      string        `json:"access_token"`
	AccessExpiresAt  time.Time     `json:"access_expires_at"`
	RefreshToken     string        `json:"refresh_token"`
	RefreshExpiresAt time.Time     `json:"refresh_expires_at"`
	User             *UserResponse `json:"user"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	GetProfile(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	repo      repository.UserRepository
	invRepo   repository.InventoryRepository
	txRepo    repository.TransactionRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	tokens    *auth.TokenManager
	cfg       config.AuthConfig
	publicURL string
	now       func() time.Time
	log       *zap.Logger
}

// NewUserService returns a new instance of UserService
func NewUserService(
	repo repository.UserRepository,
	invRepo repository.InventoryRepository,
	txRepo repository.TransactionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	tokens *auth.TokenManager,
	cfg config.AuthConfig,
	publicURL string,
	log *zap.Logger,
) UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &userService{
		repo:      repo,
		invRepo:   invRepo,
		txRepo:    txRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		tokens:    tokens,
		cfg:       cfg,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
		log:       log,
	}
}

func validateRole(role string) bool {
	return role == model.RoleUser || role == model.RoleAdmin
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	res := &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		res.LastLoginAt = user.LastLoginAt.UTC().Format(time.RFC3339)
	}
	return res
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = normalizeEmail(req.Email)
	if req.Role == "" {
		req.Role = model.RoleUser
	}

	switch {
	case req.Username == "":
		return nil, apperr.Validation("username is required")
	case !validEmail(req.Email):
		return nil, apperr.Validation("invalid email format")
	case len(req.Password) < minPasswordLength:
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
	case !validateRole(req.Role):
		return nil, apperr.Validation("invalid role: must be user or admin")
	}

	if req.Role == model.RoleAdmin {
		// only the first account may register itself as admin
		_, existing, err := s.repo.List(ctx, 0, 1)
		if err != nil {
			return nil, apperr.Internal("failed to count users", err)
		}
		if existing > 0 {
			return nil, apperr.Forbidden("admin accounts cannot be self-registered")
		}
	}

	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, apperr.Conflict("username already exists")
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperr.Conflict("email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Role:     req.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperr.FromStore(err, "user")
	}

	s.log.Info("user registered", zap.Stringer("user_id", user.ID), zap.String("role", user.Role))
	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, apperr.Internal("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("invalid email or password")
	}

	now := s.now().UTC()
	user.LastLoginAt = &now
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, apperr.Internal("failed to update last login", err)
	}

	return s.issue(ctx, user)
}

// issue creates an access token and stores a fresh refresh token.
func (s *userService) issue(ctx context.Context, user *model.User) (*AuthResult, error) {
	access, accessExp, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}

	refresh, err := randomToken()
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}
	rt := &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: s.now().Add(s.cfg.RefreshTokenTTL).UTC(),
	}
	if err := s.repo.CreateRefreshToken(ctx, rt); err != nil {
		return nil, apperr.Internal("failed to store refresh token", err)
	}

	return &AuthResult{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: rt.ExpiresAt,
		User:             mapToResponse(user),
	}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *userService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, apperr.Unauthorized("refresh token is required")
	}

	var result *AuthResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rt, err := s.repo.GetRefreshToken(txCtx, refreshToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Unauthorized("invalid refresh token")
			}
			return apperr.Internal("failed to load refresh token", err)
		}
		if err := s.repo.DeleteRefreshToken(txCtx, refreshToken); err != nil {
			return apperr.Internal("failed to revoke refresh token", err)
		}
		if !rt.ExpiresAt.After(s.now()) {
			return apperr.Unauthorized("refresh token expired")
		}

		user, err := s.repo.GetByID(txCtx, rt.UserID)
		if err != nil {
			return apperr.Unauthorized("invalid refresh token")
		}
		result, err = s.issue(txCtx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return apperr.Internal("failed to revoke refresh token", err)
	}
	return nil
}

// ForgotPassword stores a short-lived reset token and logs the reset link.
// Unknown addresses are not reported to the caller.
func (s *userService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperr.Internal("failed to load user", err)
	}

	token, err := randomToken()
	if err != nil {
		return apperr.Internal("failed to generate reset token", err)
	}
	expiry := s.now().Add(s.cfg.ResetTokenTTL).UTC()
	user.ResetPasswordToken = &token
	user.ResetPasswordExpiry = &expiry
	if err := s.repo.Update(ctx, user); err != nil {
		return apperr.Internal("failed to store reset token", err)
	}

	s.log.Info("password reset requested",
		zap.Stringer("user_id", user.ID),
		zap.String("reset_link", s.publicURL+"/api/auth/reset-password/"+token),
		zap.Time("expires_at", expiry),
	)
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < minPasswordLength {
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	user, err := s.repo.GetByResetToken(ctx, token, s.now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validation("invalid or expired reset token")
		}
		return apperr.Internal("failed to load user", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal("failed to hash password", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user.Password = string(hashed)
		user.ResetPasswordToken = nil
		user.ResetPasswordExpiry = nil
		if err := s.repo.Update(txCtx, user); err != nil {
			return apperr.Internal("failed to update password", err)
		}
		// existing sessions must log in again
		if err := s.repo.DeleteRefreshTokensByUser(txCtx, user.ID); err != nil {
			return apperr.Internal("failed to revoke sessions", err)
		}
		return nil
	})
}

func (s *userService) GetProfile(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore(err, "user")
	}
	return mapToResponse(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore(err, "user")
	}

	if username := strings.TrimSpace(req.Username); username != "" && username != user.Username {
		if _, err := s.repo.GetByUsername(ctx, username); err == nil {
			return nil, apperr.Conflict("username already exists")
		}
		user.Username = username
	}

	if email := normalizeEmail(req.Email); email != "" && email != user.Email {
		if !validEmail(email) {
			return nil, apperr.Validation("invalid email format")
		}
		if _, err := s.repo.GetByEmail(ctx, email); err == nil {
			return nil, apperr.Conflict("email already exists")
		}
		user.Email = email
	}

	if req.Password != "" {
		if len(req.Password) < minPasswordLength {
			return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Internal("failed to hash password", err)
		}
		user.Password = string(hashed)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, apperr.FromStore(err, "user")
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	p := pagination.Clamp(page, limit)
	users, total, err := s.repo.List(ctx, p.Offset(), p.Limit)
	if err != nil {
		return nil, 0, apperr.Internal("failed to list users", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}

// DeleteUser removes the account together with everything it owns.
func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetByID(txCtx, id); err != nil {
			return apperr.FromStore(err, "user")
		}
		if err := s.txRepo.DeleteByOwner(txCtx, id); err != nil {
			return err
		}
		if err := s.invRepo.DeleteByOwner(txCtx, id); err != nil {
			return err
		}
		if err := s.auditRepo.DeleteByUser(txCtx, id); err != nil {
			return err
		}
		if err := s.repo.DeleteRefreshTokensByUser(txCtx, id); err != nil {
			return err
		}
		return s.repo.Delete(txCtx, id)
	})
	if err != nil {
		var e *apperr.Error
		if errors.As(err, &e) {
			return err
		}
		s.log.Error("failed to delete user", zap.Stringer("user_id", id), zap.Error(err))
		return apperr.Internal("failed to delete user", err)
	}

	s.log.Info("user deleted", zap.Stringer("user_id", id))
	return nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
