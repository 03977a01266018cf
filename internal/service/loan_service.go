package service

import (
	"context"
	"time"

	"github.com/Baaaki/gameshelf/internal/auth"
	"github.com/Baaaki/gameshelf/internal/broker"
	"github.com/Baaaki/gameshelf/internal/journal"
	"github.com/Baaaki/gameshelf/internal/metrics"
	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// returnDateSkew tolerates client clocks slightly ahead of the server.
const returnDateSkew = time.Minute

// publishTimeout bounds broker publishing after the request may be gone.
const publishTimeout = 2 * time.Second

// LoanInput starts a loan. LenderID defaults to the game's owner.
type LoanInput struct {
	GameID             uint
	LenderID           uint
	BorrowerID         uint
	ExpectedReturnDate time.Time
	Notes              string
}

// LoanUpdate edits an active loan; nil fields are left untouched.
type LoanUpdate struct {
	Notes              *string
	ExpectedReturnDate *time.Time
}

// LoanQuery filters List. All is honored for admins only.
type LoanQuery struct {
	Side   repository.LoanSide
	Active *bool
	GameID uint
	All    bool
}

var loanRelations = []repository.Relation{repository.RelGame, repository.RelLender, repository.RelBorrower}

type LoanService struct {
	db      *gorm.DB
	journal *journal.Journal
	broker  broker.EventBroker
	now     func() time.Time
}

// NewLoanService wires the loan lifecycle. journal and eventBroker may be nil.
func NewLoanService(db *gorm.DB, j *journal.Journal, eventBroker broker.EventBroker) *LoanService {
	return &LoanService{
		db:      db,
		journal: j,
		broker:  eventBroker,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create lends a game. The AVAILABLE to BORROWED flip is a conditional
// update, so of two concurrent requests for one game only one succeeds.
func (s *LoanService) Create(ctx context.Context, p *auth.Principal, in LoanInput) (*models.Loan, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	now := s.now()
	if !in.ExpectedReturnDate.After(now) {
		return nil, apperror.Invalid("expected return date must be in the future")
	}

	var loan *models.Loan
	var game *models.Game
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		games := repository.NewGameRepository(tx)
		users := repository.NewUserRepository(tx)

		var err error
		game, err = games.GetGameByID(ctx, in.GameID)
		if err != nil {
			return apperror.Internal(err, "failed to load game")
		}
		if game == nil {
			return ErrGameNotFound
		}
		if game.IsCatalog {
			return apperror.Invalid("catalog games cannot be lent")
		}

		lenderID := in.LenderID
		if lenderID == 0 {
			lenderID = game.OwnerID
		}
		if lenderID != game.OwnerID {
			return apperror.Invalid("lender must own the game")
		}
		if lenderID == in.BorrowerID {
			return apperror.Invalid("lender and borrower must differ")
		}
		if p.UserID != lenderID && p.UserID != in.BorrowerID && !p.IsAdmin() {
			return ErrForbidden
		}

		borrower, err := users.GetUserByID(ctx, in.BorrowerID)
		if err != nil {
			return apperror.Internal(err, "failed to load borrower")
		}
		if borrower == nil {
			return apperror.Wrap(ErrUserNotFound, apperror.CodeNotFound, "borrower not found")
		}

		ok, err := games.MarkBorrowed(ctx, game.ID)
		if err != nil {
			return apperror.Internal(err, "failed to update game status")
		}
		if !ok {
			return ErrGameNotAvailable
		}

		loan = &models.Loan{
			GameID:             game.ID,
			LenderID:           lenderID,
			BorrowerID:         in.BorrowerID,
			LoanDate:           now,
			ExpectedReturnDate: in.ExpectedReturnDate.UTC(),
			Notes:              in.Notes,
		}
		if err := repository.NewLoanRepository(tx).CreateLoan(ctx, loan); err != nil {
			return apperror.Internal(err, "failed to create loan")
		}
		return nil
	})
	if err != nil {
		logger.Log.Warn("Loan creation rejected",
			zap.Uint("game_id", in.GameID),
			zap.Uint("borrower_id", in.BorrowerID),
			zap.Error(err),
		)
		return nil, err
	}

	s.record(ctx, broker.LoanCreated, loan, game.Title, p.UserID)
	return s.reload(ctx, loan.ID)
}

// Return closes an active loan and releases the game. returnDate defaults to
// now; it may not precede the loan date nor lie in the future.
func (s *LoanService) Return(ctx context.Context, p *auth.Principal, id uint, returnDate *time.Time) (*models.Loan, error) {
	loan, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !loan.IsActive() {
		return nil, ErrLoanAlreadyReturned
	}

	now := s.now()
	at := now
	if returnDate != nil {
		at = returnDate.UTC()
	}
	if at.After(now.Add(returnDateSkew)) {
		return nil, apperror.Invalid("return date cannot be in the future")
	}
	if at.Before(loan.LoanDate) {
		return nil, apperror.Invalid("return date cannot be before the loan date")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repository.NewLoanRepository(tx).MarkReturned(ctx, id, at)
		if err != nil {
			return apperror.Internal(err, "failed to mark loan returned")
		}
		if !ok {
			return ErrLoanAlreadyReturned
		}

		released, err := repository.NewGameRepository(tx).MarkAvailable(ctx, loan.GameID)
		if err != nil {
			return apperror.Internal(err, "failed to release game")
		}
		if !released {
			logger.Log.Warn("Returned loan's game was not BORROWED",
				zap.Uint("loan_id", id),
				zap.Uint("game_id", loan.GameID),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	loan.ReturnDate = &at
	s.record(ctx, broker.LoanReturned, loan, gameTitle(loan), p.UserID)
	return s.reload(ctx, id)
}

// Update edits notes or the expected return date of an active loan.
func (s *LoanService) Update(ctx context.Context, p *auth.Principal, id uint, in LoanUpdate) (*models.Loan, error) {
	loan, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !loan.IsActive() {
		return nil, ErrLoanAlreadyReturned
	}

	notes := loan.Notes
	if in.Notes != nil {
		notes = *in.Notes
	}
	expected := loan.ExpectedReturnDate
	if in.ExpectedReturnDate != nil {
		expected = in.ExpectedReturnDate.UTC()
		if !expected.After(loan.LoanDate) {
			return nil, apperror.Invalid("expected return date must be after the loan date")
		}
	}

	ok, err := repository.NewLoanRepository(s.db).UpdateActiveLoan(ctx, id, notes, expected)
	if err != nil {
		return nil, apperror.Internal(err, "failed to update loan")
	}
	if !ok {
		return nil, ErrLoanAlreadyReturned
	}

	s.record(ctx, broker.LoanUpdated, loan, gameTitle(loan), p.UserID)
	return s.reload(ctx, id)
}

// Delete removes a loan (admins only). Deleting an active loan releases the
// game in the same transaction.
func (s *LoanService) Delete(ctx context.Context, p *auth.Principal, id uint) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}

	var loan *models.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loans := repository.NewLoanRepository(tx)

		var err error
		loan, err = loans.GetLoanByID(ctx, id, repository.RelGame)
		if err != nil {
			return apperror.Internal(err, "failed to load loan")
		}
		if loan == nil {
			return ErrLoanNotFound
		}

		found, wasActive, err := loans.DeleteLoan(ctx, id)
		if err != nil {
			return apperror.Internal(err, "failed to delete loan")
		}
		if !found {
			return ErrLoanNotFound
		}
		if wasActive {
			if _, err := repository.NewGameRepository(tx).MarkAvailable(ctx, loan.GameID); err != nil {
				return apperror.Internal(err, "failed to release game")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.record(ctx, broker.LoanDeleted, loan, gameTitle(loan), p.UserID)
	return nil
}

// Get returns a loan visible to the caller: lender, borrower or admin.
func (s *LoanService) Get(ctx context.Context, p *auth.Principal, id uint, rels ...repository.Relation) (*models.Loan, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if len(rels) == 0 {
		rels = loanRelations
	}

	loan, err := repository.NewLoanRepository(s.db).GetLoanByID(ctx, id, rels...)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load loan")
	}
	if loan == nil {
		return nil, ErrLoanNotFound
	}
	if !loan.Involves(p.UserID) && !p.IsAdmin() {
		return nil, ErrForbidden
	}
	return loan, nil
}

// List returns the caller's loans, or every loan for an admin asking for All.
func (s *LoanService) List(ctx context.Context, p *auth.Principal, q LoanQuery) ([]models.Loan, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if q.All && !p.IsAdmin() {
		return nil, ErrForbidden
	}

	filter := repository.LoanFilter{
		UserID: p.UserID,
		Side:   q.Side,
		Active: q.Active,
		GameID: q.GameID,
	}
	if q.All {
		filter.UserID = 0
	}

	loans, err := repository.NewLoanRepository(s.db).ListLoans(ctx, filter, loanRelations...)
	if err != nil {
		return nil, apperror.Internal(err, "failed to list loans")
	}
	return loans, nil
}

func (s *LoanService) reload(ctx context.Context, id uint) (*models.Loan, error) {
	loan, err := repository.NewLoanRepository(s.db).GetLoanByID(ctx, id, loanRelations...)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load loan")
	}
	if loan == nil {
		return nil, ErrLoanNotFound
	}
	return loan, nil
}

func gameTitle(l *models.Loan) string {
	if l.Game != nil {
		return l.Game.Title
	}
	return ""
}

// record journals and publishes a committed transition. Failures are logged
// only: the transition already happened.
func (s *LoanService) record(ctx context.Context, event broker.EventType, loan *models.Loan, title string, actorID uint) {
	at := s.now()
	metrics.RecordLoanTransition(string(event))

	if s.journal != nil {
		err := s.journal.Append(journal.Entry{
			Event:      string(event),
			LoanID:     loan.ID,
			GameID:     loan.GameID,
			LenderID:   loan.LenderID,
			BorrowerID: loan.BorrowerID,
			ActorID:    actorID,
			Timestamp:  at,
		})
		if err != nil {
			logger.Log.Error("Failed to journal loan event",
				zap.String("event", string(event)),
				zap.Uint("loan_id", loan.ID),
				zap.Error(err),
			)
		}
	}

	if s.broker != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		err := s.broker.Publish(pubCtx, broker.LoanEvent{
			Type:       event,
			LoanID:     loan.ID,
			GameID:     loan.GameID,
			GameTitle:  title,
			LenderID:   loan.LenderID,
			BorrowerID: loan.BorrowerID,
			At:         at,
		})
		if err != nil {
			logger.Log.Error("Failed to publish loan event",
				zap.String("event", string(event)),
				zap.Uint("loan_id", loan.ID),
				zap.Error(err),
			)
		}
	}

	logger.Log.Info("Loan transition",
		zap.String("event", string(event)),
		zap.Uint("loan_id", loan.ID),
		zap.Uint("game_id", loan.GameID),
		zap.Uint("actor_id", actorID),
	)
}
