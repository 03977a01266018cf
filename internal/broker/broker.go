package broker

import (
	"context"
	"time"
)

const LoanChannel = "gameshelf:loans"

type EventType string

const (
	LoanCreated  EventType = "loan.created"
	LoanUpdated  EventType = "loan.updated"
	LoanReturned EventType = "loan.returned"
	LoanDeleted  EventType = "loan.deleted"
)

// LoanEvent is published after a loan transition has been committed.
type LoanEvent struct {
	Type       EventType `json:"type"`
	LoanID     uint      `json:"loanId"`
	GameID     uint      `json:"gameId"`
	GameTitle  string    `json:"gameTitle,omitempty"`
	LenderID   uint      `json:"lenderId"`
	BorrowerID uint      `json:"borrowerId"`
	At         time.Time `json:"at"`
}

// Involves reports whether userID is lender or borrower of the loan.
func (e LoanEvent) Involves(userID uint) bool {
	return e.LenderID == userID || e.BorrowerID == userID
}

// EventBroker fans loan events out to every subscriber, possibly across nodes.
type EventBroker interface {
	Publish(ctx context.Context, event LoanEvent) error
	// Subscribe returns a channel that is closed once ctx is done.
	Subscribe(ctx context.Context) (<-chan LoanEvent, error)
	Close() error
}
