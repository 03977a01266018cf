package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/Baaaki/gameshelf/internal/dto"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/internal/service"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/gin-gonic/gin"
)

type LoanHandler struct {
	loanService *service.LoanService
}

func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// List returns the caller's loans.
// GET /api/loans?as=lender|borrower&active=&gameId=&all=
func (h *LoanHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	side := repository.LoanSide(c.Query("as"))
	switch side {
	case repository.SideAny, repository.SideLender, repository.SideBorrower:
	default:
		respondError(c, apperror.Invalid("as must be lender or borrower"))
		return
	}
	active, ok := queryBool(c, "active")
	if !ok {
		return
	}
	gameID, ok := queryUint(c, "gameId")
	if !ok {
		return
	}
	all, ok := queryBool(c, "all")
	if !ok {
		return
	}

	loans, err := h.loanService.List(c.Request.Context(), p, service.LoanQuery{
		Side:   side,
		Active: active,
		GameID: gameID,
		All:    all != nil && *all,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.LoanResponses(loans))
}

// GET /api/loans/:id
func (h *LoanHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	loan, err := h.loanService.Get(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.LoanResponseFrom(loan))
}

// POST /api/loans
func (h *LoanHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	loan, err := h.loanService.Create(c.Request.Context(), p, service.LoanInput{
		GameID:             req.GameID,
		LenderID:           req.LenderID,
		BorrowerID:         req.BorrowerID,
		ExpectedReturnDate: req.ExpectedReturnDate,
		Notes:              req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, dto.LoanResponseFrom(loan))
}

// PUT /api/loans/:id
func (h *LoanHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	loan, err := h.loanService.Update(c.Request.Context(), p, id, service.LoanUpdate{
		Notes:              req.Notes,
		ExpectedReturnDate: req.ExpectedReturnDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.LoanResponseFrom(loan))
}

// Return closes a loan. An empty body returns it now.
// POST /api/loans/:id/return
func (h *LoanHandler) Return(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ReturnLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}

	loan, err := h.loanService.Return(c.Request.Context(), p, id, req.ReturnDate)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.LoanResponseFrom(loan))
}

// DELETE /api/loans/:id
func (h *LoanHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.loanService.Delete(c.Request.Context(), p, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
