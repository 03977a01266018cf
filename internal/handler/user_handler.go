package handler

import (
	"net/http"
	"slices"
	"strings"

	"github.com/Baaaki/gameshelf/internal/dto"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/internal/service"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// userIncludes parses ?include=roles,games,loans; "loans" expands to both sides.
func userIncludes(raw string) ([]repository.Relation, error) {
	parts := strings.Split(raw, ",")
	for i, part := range parts {
		if strings.EqualFold(strings.TrimSpace(part), "loans") {
			parts[i] = "loanslent,loansborrowed"
		}
	}
	return repository.ParseRelations(strings.Join(parts, ","),
		repository.RelRoles,
		repository.RelGames,
		repository.RelLoansLent,
		repository.RelLoansBorrowed,
	)
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.UserResponses(users))
}

// GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	user, err := h.userService.Get(c.Request.Context(), p.UserID, repository.RelRoles)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.UserResponseFrom(user))
}

// Get shows a profile. Email is only visible to the user and admins.
// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	rels, err := userIncludes(c.Query("include"))
	if err != nil {
		respondError(c, apperror.Invalid(err.Error()))
		return
	}
	// loans are visible to their participants only, as on /api/loans
	if !p.CanActFor(id) && (slices.Contains(rels, repository.RelLoansLent) || slices.Contains(rels, repository.RelLoansBorrowed)) {
		respondError(c, apperror.Forbidden("loans of other users are not visible"))
		return
	}
	if !slices.Contains(rels, repository.RelRoles) {
		rels = append(rels, repository.RelRoles)
	}

	user, err := h.userService.Get(c.Request.Context(), id, rels...)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.UserResponseFrom(user)
	if !p.CanActFor(id) {
		resp.Email = ""
	}
	respondOK(c, http.StatusOK, resp)
}

// PUT /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), p, id, service.UserUpdate{
		Name:       req.Name,
		PublicName: req.PublicName,
		Province:   req.Province,
		City:       req.City,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.UserResponseFrom(user))
}

// PUT /api/users/:id/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), p, id, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), p, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/users/:id/roles
func (h *UserHandler) AssignRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.AssignRole(c.Request.Context(), id, req.RoleID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.UserResponseFrom(user))
}

// DELETE /api/users/:id/roles/:roleId
func (h *UserHandler) RemoveRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	roleID, ok := parseID(c, "roleId")
	if !ok {
		return
	}

	user, err := h.userService.RemoveRole(c.Request.Context(), id, roleID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.UserResponseFrom(user))
}
