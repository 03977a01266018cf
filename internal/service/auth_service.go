package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Baaaki/gameshelf/internal/auth"
	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/internal/utils"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Name       string
	PublicName string
	Email      string
	Password   string
	Province   string
	City       string
}

// AuthResult is what register, login and refresh hand back to the client.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

type AuthService struct {
	userRepo *repository.UserRepository
	roleRepo *repository.RoleRepository
	tokens   *TokenService
}

func NewAuthService(userRepo *repository.UserRepository, roleRepo *repository.RoleRepository, tokens *TokenService) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		tokens:   tokens,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	start := time.Now()
	email := normalizeEmail(in.Email)
	publicName := strings.TrimSpace(in.PublicName)

	logger.Log.Debug("Processing user registration",
		zap.String("public_name", publicName),
		zap.String("email", email),
	)

	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Internal(err, "failed to check email")
	}
	if existing != nil {
		logger.Log.Warn("Email already exists", zap.String("email", email))
		return nil, ErrEmailAlreadyExists
	}

	existing, err = s.userRepo.GetUserByPublicName(ctx, publicName)
	if err != nil {
		return nil, apperror.Internal(err, "failed to check public name")
	}
	if existing != nil {
		logger.Log.Warn("Public name already exists", zap.String("public_name", publicName))
		return nil, ErrPublicNameAlreadyExists
	}

	hashStart := time.Now()
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Internal(err, "failed to hash password")
	}
	hashDuration := time.Since(hashStart)

	userRole, err := s.roleRepo.GetRoleByName(ctx, models.RoleUser)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load default role")
	}
	if userRole == nil {
		return nil, apperror.Internal(errors.New("role missing"), "default role is not seeded")
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		PublicName:   publicName,
		Email:        email,
		PasswordHash: hash,
		Province:     in.Province,
		City:         in.City,
		RegisteredAt: time.Now().UTC(),
		Roles:        []models.Role{*userRole},
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		// lost a race against a concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Wrap(err, apperror.CodeConflict, "email or public name already exists")
		}
		logger.Log.Error("Failed to create user", zap.String("email", email), zap.Error(err))
		return nil, apperror.Internal(err, "failed to create user")
	}

	result, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("User registered successfully",
		zap.Uint("user_id", user.ID),
		zap.String("public_name", publicName),
		zap.Duration("hash_duration", hashDuration),
		zap.Duration("total_duration", time.Since(start)),
	)
	return result, nil
}

// Login verifies credentials, revokes the user's previous tokens and issues a
// fresh pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	start := time.Now()
	email = normalizeEmail(email)

	user, err := s.userRepo.GetUserByEmail(ctx, email, repository.RelRoles)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load user")
	}
	if user == nil {
		logger.Log.Warn("Login failed: user not found", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	valid, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, apperror.Internal(err, "failed to verify password")
	}
	if !valid {
		logger.Log.Warn("Login failed: invalid password", zap.Uint("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	if err := s.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
		return nil, err
	}

	result, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("User logged in successfully",
		zap.Uint("user_id", user.ID),
		zap.Duration("total_duration", time.Since(start)),
	)
	return result, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// itself is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.Validate(ctx, refreshToken, models.TokenTypeRefresh)
	if err != nil {
		logger.Log.Warn("Refresh rejected", zap.Error(err))
		return nil, err
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID, repository.RelRoles)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load user")
	}
	if user == nil {
		return nil, ErrRevokedToken
	}

	if err := s.tokens.RevokeAccessTokens(ctx, user.ID); err != nil {
		return nil, err
	}

	access, err := s.tokens.IssueAccessToken(ctx, user)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Access token refreshed", zap.Uint("user_id", user.ID))
	return &AuthResult{AccessToken: access, RefreshToken: refreshToken, User: user}, nil
}

// Logout revokes every token of the caller.
func (s *AuthService) Logout(ctx context.Context, p *auth.Principal) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if err := s.tokens.RevokeAllForUser(ctx, p.UserID); err != nil {
		return err
	}
	logger.Log.Info("User logged out", zap.Uint("user_id", p.UserID))
	return nil
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User) (*AuthResult, error) {
	access, err := s.tokens.IssueAccessToken(ctx, user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}
