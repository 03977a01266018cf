package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Baaaki/gameshelf/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameFilter narrows ListGames. Zero values mean "any".
type GameFilter struct {
	OwnerID uint
	Status  models.GameStatus
	Catalog *bool
	Query   string
}

type GameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) CreateGame(ctx context.Context, game *models.Game) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(game).Error
}

// GetGameByID returns nil, nil when the game does not exist.
func (r *GameRepository) GetGameByID(ctx context.Context, id uint, rels ...Relation) (*models.Game, error) {
	var game models.Game
	err := preload(r.db.WithContext(ctx), rels).First(&game, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &game, nil
}

func (r *GameRepository) ListGames(ctx context.Context, filter GameFilter, rels ...Relation) ([]models.Game, error) {
	q := preload(r.db.WithContext(ctx), rels)

	if filter.OwnerID != 0 {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Catalog != nil {
		q = q.Where("is_catalog = ?", *filter.Catalog)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(platform) LIKE ? OR LOWER(genre) LIKE ?", like, like, like)
	}

	var games []models.Game
	err := q.Order("title ASC").Find(&games).Error
	return games, err
}

// UpdateGameDetails writes the editable columns only if the status is still
// expectedStatus, so an edit never clobbers a concurrent loan transition.
func (r *GameRepository) UpdateGameDetails(ctx context.Context, game *models.Game, expectedStatus models.GameStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status = ?", game.ID, expectedStatus).
		Updates(map[string]interface{}{
			"title":       game.Title,
			"platform":    game.Platform,
			"genre":       game.Genre,
			"description": game.Description,
			"status":      game.Status,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetImage attaches a document as the game's image.
func (r *GameRepository) SetImage(ctx context.Context, gameID, documentID uint) error {
	return r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ?", gameID).
		Update("image_id", documentID).Error
}

// DeleteGame removes a game that is not lent out, together with its returned
// loans. It reports false when the game is BORROWED. Run it inside a
// transaction.
func (r *GameRepository) DeleteGame(ctx context.Context, id uint) (bool, error) {
	db := r.db.WithContext(ctx)
	if err := db.Where("game_id = ? AND return_date IS NOT NULL", id).Delete(&models.Loan{}).Error; err != nil {
		return false, err
	}
	if err := db.Model(&models.Game{}).Where("catalog_game_id = ?", id).
		Update("catalog_game_id", nil).Error; err != nil {
		return false, err
	}
	res := db.Where("id = ? AND status <> ?", id, models.GameBorrowed).Delete(&models.Game{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkBorrowed flips AVAILABLE to BORROWED. It reports false when the game was
// not AVAILABLE, which makes concurrent loan creation safe.
func (r *GameRepository) MarkBorrowed(ctx context.Context, id uint) (bool, error) {
	return r.transition(ctx, id, models.GameAvailable, models.GameBorrowed)
}

// MarkAvailable flips BORROWED back to AVAILABLE.
func (r *GameRepository) MarkAvailable(ctx context.Context, id uint) (bool, error) {
	return r.transition(ctx, id, models.GameBorrowed, models.GameAvailable)
}

func (r *GameRepository) transition(ctx context.Context, id uint, from, to models.GameStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DetachImage clears image_id on every game that uses the document.
func (r *GameRepository) DetachImage(ctx context.Context, documentID uint) error {
	return r.db.WithContext(ctx).Model(&models.Game{}).
		Where("image_id = ?", documentID).
		Update("image_id", nil).Error
}

func (r *GameRepository) CountBorrowedByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("owner_id = ? AND status = ?", ownerID, models.GameBorrowed).
		Count(&n).Error
	return n, err
}
