package models

import "time"

type GameStatus string

const (
	GameAvailable   GameStatus = "AVAILABLE"
	GameBorrowed    GameStatus = "BORROWED"
	GameUnavailable GameStatus = "UNAVAILABLE"
)

func (s GameStatus) Valid() bool {
	switch s {
	case GameAvailable, GameBorrowed, GameUnavailable:
		return true
	}
	return false
}

type Game struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"type:varchar(200);not null;index" json:"title"`
	Platform    string     `gorm:"type:varchar(100)" json:"platform"`
	Genre       string     `gorm:"type:varchar(100)" json:"genre"`
	Description string     `gorm:"type:text" json:"description"`
	Status      GameStatus `gorm:"type:varchar(20);not null;default:'AVAILABLE';index" json:"status"`

	// Catalog games are reference templates owned by an admin; personal copies
	// point back to them through CatalogGameID.
	IsCatalog     bool  `gorm:"not null;default:false;index" json:"catalog"`
	CatalogGameID *uint `gorm:"index" json:"catalogGameId,omitempty"`

	OwnerID uint  `gorm:"not null;index" json:"ownerId"`
	ImageID *uint `json:"imageId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Owner       *User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Image       *Document `gorm:"foreignKey:ImageID;constraint:OnDelete:SET NULL" json:"image,omitempty"`
	CatalogGame *Game     `gorm:"foreignKey:CatalogGameID;constraint:OnDelete:SET NULL" json:"-"`
}
