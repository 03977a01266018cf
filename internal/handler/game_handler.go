package handler

import (
	"net/http"

	"github.com/Baaaki/gameshelf/internal/dto"
	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/internal/service"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	gameService *service.GameService
}

func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

func gameIncludes(c *gin.Context) ([]repository.Relation, bool) {
	rels, err := repository.ParseRelations(c.Query("include"), repository.RelOwner, repository.RelImage)
	if err != nil {
		respondError(c, apperror.Invalid(err.Error()))
		return nil, false
	}
	return rels, true
}

func gameInput(req dto.GameDTO) service.GameInput {
	return service.GameInput{
		Title:       req.Title,
		Platform:    req.Platform,
		Genre:       req.Genre,
		Description: req.Description,
		Status:      req.Status,
		Catalog:     req.Catalog,
	}
}

// GET /api/games?ownerId=&status=&catalog=&q=&include=
func (h *GameHandler) List(c *gin.Context) {
	ownerID, ok := queryUint(c, "ownerId")
	if !ok {
		return
	}
	catalog, ok := queryBool(c, "catalog")
	if !ok {
		return
	}
	status := models.GameStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		respondError(c, apperror.Invalid("invalid status"))
		return
	}
	rels, ok := gameIncludes(c)
	if !ok {
		return
	}

	games, err := h.gameService.List(c.Request.Context(), repository.GameFilter{
		OwnerID: ownerID,
		Status:  status,
		Catalog: catalog,
		Query:   c.Query("q"),
	}, rels...)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.GameResponses(games))
}

// GET /api/games/:id
func (h *GameHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	rels, ok := gameIncludes(c)
	if !ok {
		return
	}
	game, err := h.gameService.Get(c.Request.Context(), id, rels...)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.GameResponseFrom(game))
}

// POST /api/games
func (h *GameHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.GameDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	game, err := h.gameService.Create(c.Request.Context(), p, gameInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, dto.GameResponseFrom(game))
}

// PUT /api/games/:id
func (h *GameHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.GameDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	game, err := h.gameService.Update(c.Request.Context(), p, id, gameInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.GameResponseFrom(game))
}

// DELETE /api/games/:id
func (h *GameHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.gameService.Delete(c.Request.Context(), p, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/games/catalog/:id/copy
func (h *GameHandler) CopyFromCatalog(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	game, err := h.gameService.CopyFromCatalog(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, dto.GameResponseFrom(game))
}
