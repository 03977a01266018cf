package models

import "time"

type LoanState string

const (
	LoanActive   LoanState = "ACTIVE"
	LoanReturned LoanState = "RETURNED"
)

type Loan struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	GameID             uint       `gorm:"not null;index" json:"gameId"`
	LenderID           uint       `gorm:"not null;index" json:"lenderId"`
	BorrowerID         uint       `gorm:"not null;index" json:"borrowerId"`
	LoanDate           time.Time  `gorm:"not null" json:"loanDate"`
	ExpectedReturnDate time.Time  `gorm:"not null" json:"expectedReturnDate"`
	ReturnDate         *time.Time `gorm:"index" json:"returnDate,omitempty"` // nil while the loan is active
	Notes              string     `gorm:"type:text" json:"notes"`

	Game     *Game `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE" json:"game,omitempty"`
	Lender   *User `gorm:"foreignKey:LenderID;constraint:OnDelete:CASCADE" json:"lender,omitempty"`
	Borrower *User `gorm:"foreignKey:BorrowerID;constraint:OnDelete:CASCADE" json:"borrower,omitempty"`
}

func (l *Loan) State() LoanState {
	if l.ReturnDate == nil {
		return LoanActive
	}
	return LoanReturned
}

func (l *Loan) IsActive() bool { return l.ReturnDate == nil }

// Involves reports whether the user is the lender or the borrower.
func (l *Loan) Involves(userID uint) bool {
	return l.LenderID == userID || l.BorrowerID == userID
}
