package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Baaaki/gameshelf/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoanSide restricts a listing to loans where the user lends or borrows.
type LoanSide string

const (
	SideAny      LoanSide = ""
	SideLender   LoanSide = "lender"
	SideBorrower LoanSide = "borrower"
)

// LoanFilter narrows ListLoans. UserID 0 lists every loan.
type LoanFilter struct {
	UserID uint
	Side   LoanSide
	Active *bool
	GameID uint
}

type LoanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) CreateLoan(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(loan).Error
}

// GetLoanByID returns nil, nil when the loan does not exist.
func (r *LoanRepository) GetLoanByID(ctx context.Context, id uint, rels ...Relation) (*models.Loan, error) {
	var loan models.Loan
	err := preload(r.db.WithContext(ctx), rels).First(&loan, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &loan, nil
}

func (r *LoanRepository) ListLoans(ctx context.Context, filter LoanFilter, rels ...Relation) ([]models.Loan, error) {
	q := preload(r.db.WithContext(ctx), rels)

	if filter.UserID != 0 {
		switch filter.Side {
		case SideLender:
			q = q.Where("lender_id = ?", filter.UserID)
		case SideBorrower:
			q = q.Where("borrower_id = ?", filter.UserID)
		default:
			q = q.Where("lender_id = ? OR borrower_id = ?", filter.UserID, filter.UserID)
		}
	}
	if filter.Active != nil {
		if *filter.Active {
			q = q.Where("return_date IS NULL")
		} else {
			q = q.Where("return_date IS NOT NULL")
		}
	}
	if filter.GameID != 0 {
		q = q.Where("game_id = ?", filter.GameID)
	}

	var loans []models.Loan
	err := q.Order("loan_date DESC").Find(&loans).Error
	return loans, err
}

// MarkReturned sets return_date only while it is still NULL and reports
// whether this call performed the transition.
func (r *LoanRepository) MarkReturned(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("id = ? AND return_date IS NULL", id).
		Update("return_date", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateActiveLoan rewrites notes and expected return date of an active loan.
func (r *LoanRepository) UpdateActiveLoan(ctx context.Context, id uint, notes string, expectedReturn time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("id = ? AND return_date IS NULL", id).
		Updates(map[string]interface{}{
			"notes":                notes,
			"expected_return_date": expectedReturn,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteLoan removes the loan. found is false when no row existed; wasActive
// reports whether the deleted loan was still unreturned.
func (r *LoanRepository) DeleteLoan(ctx context.Context, id uint) (found, wasActive bool, err error) {
	db := r.db.WithContext(ctx)
	res := db.Where("id = ? AND return_date IS NULL", id).Delete(&models.Loan{})
	if res.Error != nil {
		return false, false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, true, nil
	}
	res = db.Delete(&models.Loan{}, id)
	if res.Error != nil {
		return false, false, res.Error
	}
	return res.RowsAffected == 1, false, nil
}

// CountActiveForUser counts unreturned loans where the user is either party.
func (r *LoanRepository) CountActiveForUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("(lender_id = ? OR borrower_id = ?) AND return_date IS NULL", userID, userID).
		Count(&n).Error
	return n, err
}
