package dto

import (
	"time"

	"github.com/Baaaki/gameshelf/internal/models"
)

// GameDTO is the create/update body of a game.
type GameDTO struct {
	Title       string            `json:"title" binding:"required,max=200"`
	Platform    string            `json:"platform" binding:"max=100"`
	Genre       string            `json:"genre" binding:"max=100"`
	Description string            `json:"description" binding:"max=2000"`
	Status      models.GameStatus `json:"status" binding:"omitempty,oneof=AVAILABLE BORROWED UNAVAILABLE"`
	Catalog     bool              `json:"catalog"`
}

func (d GameDTO) ToModel() *models.Game {
	status := d.Status
	if status == "" {
		status = models.GameAvailable
	}
	return &models.Game{
		Title:       d.Title,
		Platform:    d.Platform,
		Genre:       d.Genre,
		Description: d.Description,
		Status:      status,
		IsCatalog:   d.Catalog,
	}
}

type GameResponse struct {
	ID            uint              `json:"id"`
	Title         string            `json:"title"`
	Platform      string            `json:"platform"`
	Genre         string            `json:"genre"`
	Description   string            `json:"description"`
	Status        models.GameStatus `json:"status"`
	Catalog       bool              `json:"catalog"`
	CatalogGameID *uint             `json:"catalogGameId,omitempty"`
	OwnerID       uint              `json:"ownerId"`
	Owner         *UserSummary      `json:"owner,omitempty"`
	ImageID       *uint             `json:"imageId,omitempty"`
	Image         *DocumentResponse `json:"image,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func GameResponseFrom(g *models.Game) GameResponse {
	resp := GameResponse{
		ID:            g.ID,
		Title:         g.Title,
		Platform:      g.Platform,
		Genre:         g.Genre,
		Description:   g.Description,
		Status:        g.Status,
		Catalog:       g.IsCatalog,
		CatalogGameID: g.CatalogGameID,
		OwnerID:       g.OwnerID,
		Owner:         UserSummaryFrom(g.Owner),
		ImageID:       g.ImageID,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
	if g.Image != nil {
		img := DocumentResponseFrom(g.Image)
		resp.Image = &img
	}
	return resp
}

func GameResponses(games []models.Game) []GameResponse {
	out := make([]GameResponse, 0, len(games))
	for i := range games {
		out = append(out, GameResponseFrom(&games[i]))
	}
	return out
}
