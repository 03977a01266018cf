package service

import (
	"context"
	"errors"
	"time"

	"github.com/Baaaki/gameshelf/internal/auth"
	"github.com/Baaaki/gameshelf/internal/metrics"
	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/internal/utils"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"go.uber.org/zap"
)

// TokenService issues JWTs and checks them against the token table.
type TokenService struct {
	tokenRepo  *repository.TokenRepository
	userRepo   *repository.UserRepository
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(
	tokenRepo *repository.TokenRepository,
	userRepo *repository.UserRepository,
	secret string,
	accessTTL, refreshTTL time.Duration,
) *TokenService {
	return &TokenService{
		tokenRepo:  tokenRepo,
		userRepo:   userRepo,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccessToken signs and stores an access token. Roles must be preloaded.
func (s *TokenService) IssueAccessToken(ctx context.Context, user *models.User) (string, error) {
	return s.issue(ctx, user, models.TokenTypeAccess, s.accessTTL)
}

func (s *TokenService) IssueRefreshToken(ctx context.Context, user *models.User) (string, error) {
	return s.issue(ctx, user, models.TokenTypeRefresh, s.refreshTTL)
}

func (s *TokenService) issue(ctx context.Context, user *models.User, tokenType models.TokenType, ttl time.Duration) (string, error) {
	raw, claims, err := utils.GenerateToken(user, tokenType, s.secret, ttl)
	if err != nil {
		return "", apperror.Internal(err, "failed to sign token")
	}

	row := &models.Token{
		Token:     raw,
		TokenType: tokenType,
		UserID:    user.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := s.tokenRepo.CreateToken(ctx, row); err != nil {
		logger.Log.Error("Failed to persist token",
			zap.Uint("user_id", user.ID),
			zap.String("token_type", string(tokenType)),
			zap.Error(err),
		)
		return "", apperror.Internal(err, "failed to store token")
	}

	metrics.RecordTokenIssued(string(tokenType))
	return raw, nil
}

// Validate checks signature and expiry, then the token type, then the token
// row. A token the server never issued counts as revoked.
func (s *TokenService) Validate(ctx context.Context, raw string, expected models.TokenType) (*utils.Claims, error) {
	claims, err := utils.ParseToken(raw, s.secret)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrExpiredToken):
			return nil, ErrExpiredToken
		case errors.Is(err, utils.ErrInvalidSignature):
			return nil, ErrInvalidSignature
		case errors.Is(err, utils.ErrEmptySecret):
			return nil, apperror.Internal(err, "token validation misconfigured")
		default:
			return nil, ErrMalformedToken
		}
	}

	if claims.TokenType != expected {
		return nil, ErrInvalidTokenType
	}

	row, err := s.tokenRepo.GetByToken(ctx, raw)
	if err != nil {
		return nil, apperror.Internal(err, "failed to look up token")
	}
	if row == nil || !row.Usable() {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// Authenticate validates an access token and resolves its user.
func (s *TokenService) Authenticate(ctx context.Context, raw string) (*auth.Principal, error) {
	claims, err := s.Validate(ctx, raw, models.TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID, repository.RelRoles)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load user")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return auth.FromUser(user), nil
}

// RevokeAllForUser revokes every outstanding token of the user.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uint) error {
	n, err := s.tokenRepo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return apperror.Internal(err, "failed to revoke tokens")
	}
	logger.Log.Debug("Revoked tokens", zap.Uint("user_id", userID), zap.Int64("count", n))
	return nil
}

func (s *TokenService) RevokeAccessTokens(ctx context.Context, userID uint) error {
	if _, err := s.tokenRepo.RevokeAllForUser(ctx, userID, models.TokenTypeAccess); err != nil {
		return apperror.Internal(err, "failed to revoke tokens")
	}
	return nil
}

// PurgeStale deletes revoked rows and rows that expired before cutoff.
func (s *TokenService) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.tokenRepo.DeleteStale(ctx, cutoff)
	if err != nil {
		return 0, apperror.Internal(err, "failed to purge tokens")
	}
	return n, nil
}
