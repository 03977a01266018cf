package models

import "time"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Token records an issued JWT so it can be revoked server side.
type Token struct {
	ID        uint      `gorm:"primaryKey"`
	Token     string    `gorm:"type:text;uniqueIndex;not null"`
	TokenType TokenType `gorm:"type:varchar(20);not null;index"`
	UserID    uint      `gorm:"not null;index"`
	Expired   bool      `gorm:"not null;default:false"`
	Revoked   bool      `gorm:"not null;default:false"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Usable reports whether the row still authorizes requests.
func (t *Token) Usable() bool {
	return !t.Revoked && !t.Expired
}
