package dto

import (
	"time"

	"github.com/Baaaki/gameshelf/internal/models"
)

type CreateLoanRequest struct {
	GameID             uint      `json:"gameId" binding:"required"`
	LenderID           uint      `json:"lenderId"`
	BorrowerID         uint      `json:"borrowerId" binding:"required"`
	ExpectedReturnDate time.Time `json:"expectedReturnDate" binding:"required"`
	Notes              string    `json:"notes" binding:"max=1000"`
}

type UpdateLoanRequest struct {
	Notes              *string    `json:"notes" binding:"omitempty,max=1000"`
	ExpectedReturnDate *time.Time `json:"expectedReturnDate"`
}

type ReturnLoanRequest struct {
	ReturnDate *time.Time `json:"returnDate"`
}

type LoanResponse struct {
	ID                 uint             `json:"id"`
	GameID             uint             `json:"gameId"`
	GameTitle          string           `json:"gameTitle,omitempty"`
	Lender             *UserSummary     `json:"lender,omitempty"`
	Borrower           *UserSummary     `json:"borrower,omitempty"`
	LenderID           uint             `json:"lenderId"`
	BorrowerID         uint             `json:"borrowerId"`
	LoanDate           time.Time        `json:"loanDate"`
	ExpectedReturnDate time.Time        `json:"expectedReturnDate"`
	ReturnDate         *time.Time       `json:"returnDate,omitempty"`
	Notes              string           `json:"notes"`
	State              models.LoanState `json:"state"`
}

func LoanResponseFrom(l *models.Loan) LoanResponse {
	resp := LoanResponse{
		ID:                 l.ID,
		GameID:             l.GameID,
		Lender:             UserSummaryFrom(l.Lender),
		Borrower:           UserSummaryFrom(l.Borrower),
		LenderID:           l.LenderID,
		BorrowerID:         l.BorrowerID,
		LoanDate:           l.LoanDate,
		ExpectedReturnDate: l.ExpectedReturnDate,
		ReturnDate:         l.ReturnDate,
		Notes:              l.Notes,
		State:              l.State(),
	}
	if l.Game != nil {
		resp.GameTitle = l.Game.Title
	}
	return resp
}

func LoanResponses(loans []models.Loan) []LoanResponse {
	out := make([]LoanResponse, 0, len(loans))
	for i := range loans {
		out = append(out, LoanResponseFrom(&loans[i]))
	}
	return out
}
