package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Baaaki/gameshelf/internal/models"
	"gorm.io/gorm"
)

// TokenRepository persists issued JWTs for server-side revocation.
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) CreateToken(ctx context.Context, token *models.Token) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetByToken returns nil, nil for tokens never issued by this server.
func (r *TokenRepository) GetByToken(ctx context.Context, raw string) (*models.Token, error) {
	var token models.Token
	err := r.db.WithContext(ctx).Where("token = ?", raw).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// RevokeAllForUser revokes every usable token of the user. When types are
// given only those token types are revoked.
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID uint, types ...models.TokenType) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Token{}).
		Where("user_id = ? AND revoked = ?", userID, false)
	if len(types) > 0 {
		q = q.Where("token_type IN ?", types)
	}
	res := q.Updates(map[string]interface{}{"revoked": true, "expired": true})
	return res.RowsAffected, res.Error
}

// DeleteStale removes revoked rows and rows that expired before the cutoff.
func (r *TokenRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("revoked = ? OR expired = ? OR expires_at < ?", true, true, cutoff).
		Delete(&models.Token{})
	return res.RowsAffected, res.Error
}
