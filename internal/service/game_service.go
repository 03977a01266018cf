package service

import (
	"context"
	"strings"

	"github.com/Baaaki/gameshelf/internal/auth"
	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GameInput carries the client-editable fields of a game. An empty Status
// means AVAILABLE on create and "unchanged" on update.
type GameInput struct {
	Title       string
	Platform    string
	Genre       string
	Description string
	Status      models.GameStatus
	Catalog     bool
}

type GameService struct {
	db       *gorm.DB
	gameRepo *repository.GameRepository
}

func NewGameService(db *gorm.DB) *GameService {
	return &GameService{db: db, gameRepo: repository.NewGameRepository(db)}
}

func (s *GameService) List(ctx context.Context, filter repository.GameFilter, rels ...repository.Relation) ([]models.Game, error) {
	games, err := s.gameRepo.ListGames(ctx, filter, rels...)
	if err != nil {
		return nil, apperror.Internal(err, "failed to list games")
	}
	return games, nil
}

func (s *GameService) Get(ctx context.Context, id uint, rels ...repository.Relation) (*models.Game, error) {
	game, err := s.gameRepo.GetGameByID(ctx, id, rels...)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load game")
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

// checkSettableStatus allows only the statuses an owner may choose.
func checkSettableStatus(status models.GameStatus) error {
	switch status {
	case models.GameAvailable, models.GameUnavailable:
		return nil
	case models.GameBorrowed:
		return apperror.Invalid("status BORROWED is set by loans only")
	default:
		return apperror.Invalid("unknown game status")
	}
}

// Create adds a game owned by the caller. Only admins create catalog games.
func (s *GameService) Create(ctx context.Context, p *auth.Principal, in GameInput) (*models.Game, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if in.Catalog && !p.IsAdmin() {
		return nil, apperror.Forbidden("only admins can create catalog games")
	}

	status := in.Status
	if status == "" {
		status = models.GameAvailable
	}
	if err := checkSettableStatus(status); err != nil {
		return nil, err
	}

	game := &models.Game{
		Title:       strings.TrimSpace(in.Title),
		Platform:    in.Platform,
		Genre:       in.Genre,
		Description: in.Description,
		Status:      status,
		IsCatalog:   in.Catalog,
		OwnerID:     p.UserID,
	}
	if err := s.gameRepo.CreateGame(ctx, game); err != nil {
		return nil, apperror.Internal(err, "failed to create game")
	}

	logger.Log.Info("Game created",
		zap.Uint("game_id", game.ID),
		zap.Uint("owner_id", p.UserID),
		zap.Bool("catalog", game.IsCatalog),
	)
	return game, nil
}

// Update edits a game. A BORROWED game keeps its status until the loan ends.
func (s *GameService) Update(ctx context.Context, p *auth.Principal, id uint, in GameInput) (*models.Game, error) {
	game, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanActFor(game.OwnerID) {
		return nil, ErrForbidden
	}

	current := game.Status
	if in.Status != "" && in.Status != current {
		if current == models.GameBorrowed {
			return nil, ErrGameBorrowed
		}
		if err := checkSettableStatus(in.Status); err != nil {
			return nil, err
		}
		game.Status = in.Status
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		game.Title = title
	}
	game.Platform = in.Platform
	game.Genre = in.Genre
	game.Description = in.Description

	ok, err := s.gameRepo.UpdateGameDetails(ctx, game, current)
	if err != nil {
		return nil, apperror.Internal(err, "failed to update game")
	}
	if !ok {
		// status moved under us, most likely a loan was created
		return nil, apperror.Conflict("game changed concurrently, retry")
	}

	return s.Get(ctx, id)
}

// Delete removes a game unless it is lent out.
func (s *GameService) Delete(ctx context.Context, p *auth.Principal, id uint) error {
	game, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !p.CanActFor(game.OwnerID) {
		return ErrForbidden
	}
	if game.Status == models.GameBorrowed {
		return ErrGameBorrowed
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repository.NewGameRepository(tx).DeleteGame(ctx, id)
		if err != nil {
			return apperror.Internal(err, "failed to delete game")
		}
		if !ok {
			return ErrGameBorrowed
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Info("Game deleted", zap.Uint("game_id", id), zap.Uint("by", p.UserID))
	return nil
}

// CopyFromCatalog gives the caller a personal copy of a catalog game.
func (s *GameService) CopyFromCatalog(ctx context.Context, p *auth.Principal, catalogID uint) (*models.Game, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}

	source, err := s.Get(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	if !source.IsCatalog {
		return nil, ErrNotCatalogGame
	}

	game := &models.Game{
		Title:         source.Title,
		Platform:      source.Platform,
		Genre:         source.Genre,
		Description:   source.Description,
		Status:        models.GameAvailable,
		CatalogGameID: &source.ID,
		OwnerID:       p.UserID,
		ImageID:       source.ImageID,
	}
	if err := s.gameRepo.CreateGame(ctx, game); err != nil {
		return nil, apperror.Internal(err, "failed to copy game")
	}

	logger.Log.Info("Catalog game copied",
		zap.Uint("catalog_id", catalogID),
		zap.Uint("game_id", game.ID),
		zap.Uint("owner_id", p.UserID),
	)
	return game, nil
}
