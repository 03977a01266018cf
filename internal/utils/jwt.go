package utils

import (
	"errors"
	"time"

	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrExpiredToken     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrEmptySecret      = errors.New("jwt secret must not be empty")
)

// Claims is the payload shared by access and refresh tokens. The subject is
// the user's email; TokenType tells the two apart.
type Claims struct {
	UserID     uint             `json:"uid"`
	Name       string           `json:"name"`
	PublicName string           `json:"public_name"`
	Roles      []string         `json:"roles,omitempty"`
	TokenType  models.TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for user. Roles must be preloaded on the
// user for them to appear in the claims.
func GenerateToken(user *models.User, tokenType models.TokenType, secretKey string, expiresIn time.Duration) (string, *Claims, error) {
	if secretKey == "" {
		return "", nil, ErrEmptySecret
	}

	now := time.Now()
	claims := &Claims{
		UserID:     user.ID,
		Name:       user.Name,
		PublicName: user.PublicName,
		Roles:      user.RoleNames(),
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", nil, err
	}

	return tokenString, claims, nil
}

// ParseToken verifies signature and expiry and maps library errors onto
// ErrExpiredToken, ErrInvalidSignature or ErrMalformedToken.
func ParseToken(tokenString, secretKey string) (*Claims, error) {
	if secretKey == "" {
		return nil, ErrEmptySecret
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformedToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrMalformedToken
	}

	return claims, nil
}
