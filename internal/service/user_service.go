package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Baaaki/gameshelf/internal/auth"
	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/internal/utils"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserUpdate holds profile changes; empty fields are left untouched.
type UserUpdate struct {
	Name       string
	PublicName string
	Province   string
	City       string
}

type UserService struct {
	db       *gorm.DB
	userRepo *repository.UserRepository
	roleRepo *repository.RoleRepository
	loanRepo *repository.LoanRepository
	tokens   *TokenService
}

func NewUserService(db *gorm.DB, tokens *TokenService) *UserService {
	return &UserService{
		db:       db,
		userRepo: repository.NewUserRepository(db),
		roleRepo: repository.NewRoleRepository(db),
		loanRepo: repository.NewLoanRepository(db),
		tokens:   tokens,
	}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.ListUsers(ctx, repository.RelRoles)
	if err != nil {
		return nil, apperror.Internal(err, "failed to list users")
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id uint, rels ...repository.Relation) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id, rels...)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load user")
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Update changes profile fields of the user; only the user or an admin may.
func (s *UserService) Update(ctx context.Context, p *auth.Principal, id uint, in UserUpdate) (*models.User, error) {
	if !p.CanActFor(id) {
		return nil, ErrForbidden
	}

	user, err := s.Get(ctx, id, repository.RelRoles)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.PublicName); name != "" && name != user.PublicName {
		other, err := s.userRepo.GetUserByPublicName(ctx, name)
		if err != nil {
			return nil, apperror.Internal(err, "failed to check public name")
		}
		if other != nil {
			return nil, ErrPublicNameAlreadyExists
		}
		user.PublicName = name
	}
	if in.Name != "" {
		user.Name = strings.TrimSpace(in.Name)
	}
	if in.Province != "" {
		user.Province = in.Province
	}
	if in.City != "" {
		user.City = in.City
	}

	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPublicNameAlreadyExists
		}
		return nil, apperror.Internal(err, "failed to update user")
	}

	logger.Log.Info("User updated", zap.Uint("user_id", id), zap.Uint("by", p.UserID))
	return user, nil
}

// ChangePassword replaces the caller's password and signs them out everywhere.
func (s *UserService) ChangePassword(ctx context.Context, p *auth.Principal, id uint, current, next string) error {
	if p == nil || p.UserID != id {
		return ErrForbidden
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	ok, err := utils.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return apperror.Internal(err, "failed to verify password")
	}
	if !ok {
		return ErrWrongPassword
	}

	hash, err := utils.HashPassword(next)
	if err != nil {
		return apperror.Internal(err, "failed to hash password")
	}
	user.PasswordHash = hash
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return apperror.Internal(err, "failed to update password")
	}

	logger.Log.Info("Password changed", zap.Uint("user_id", id))
	return s.tokens.RevokeAllForUser(ctx, id)
}

// Delete removes the user with everything they own. Users still taking part
// in an active loan cannot be deleted.
func (s *UserService) Delete(ctx context.Context, p *auth.Principal, id uint) error {
	if !p.CanActFor(id) {
		return ErrForbidden
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		user, err := users.GetUserByID(ctx, id)
		if err != nil {
			return apperror.Internal(err, "failed to load user")
		}
		if user == nil {
			return ErrUserNotFound
		}

		active, err := repository.NewLoanRepository(tx).CountActiveForUser(ctx, id)
		if err != nil {
			return apperror.Internal(err, "failed to count loans")
		}
		borrowed, err := repository.NewGameRepository(tx).CountBorrowedByOwner(ctx, id)
		if err != nil {
			return apperror.Internal(err, "failed to count games")
		}
		if active > 0 || borrowed > 0 {
			return ErrUserHasActiveLoans
		}

		if err := users.DeleteUser(ctx, id); err != nil {
			return apperror.Internal(err, "failed to delete user")
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Log.Info("User deleted", zap.Uint("user_id", id), zap.Uint("by", p.UserID))
	return nil
}

func (s *UserService) AssignRole(ctx context.Context, userID, roleID uint) (*models.User, error) {
	user, role, err := s.userAndRole(ctx, userID, roleID)
	if err != nil {
		return nil, err
	}
	if !user.HasRole(role.Name) {
		if err := s.userRepo.AddRole(ctx, user, role); err != nil {
			return nil, apperror.Internal(err, "failed to assign role")
		}
		logger.Log.Info("Role assigned", zap.Uint("user_id", userID), zap.String("role", role.Name))
	}
	return s.Get(ctx, userID, repository.RelRoles)
}

func (s *UserService) RemoveRole(ctx context.Context, userID, roleID uint) (*models.User, error) {
	user, role, err := s.userAndRole(ctx, userID, roleID)
	if err != nil {
		return nil, err
	}
	if user.HasRole(role.Name) {
		if err := s.userRepo.RemoveRole(ctx, user, role); err != nil {
			return nil, apperror.Internal(err, "failed to remove role")
		}
		logger.Log.Info("Role removed", zap.Uint("user_id", userID), zap.String("role", role.Name))
	}
	return s.Get(ctx, userID, repository.RelRoles)
}

func (s *UserService) userAndRole(ctx context.Context, userID, roleID uint) (*models.User, *models.Role, error) {
	user, err := s.Get(ctx, userID, repository.RelRoles)
	if err != nil {
		return nil, nil, err
	}
	role, err := s.roleRepo.GetRoleByID(ctx, roleID)
	if err != nil {
		return nil, nil, apperror.Internal(err, "failed to load role")
	}
	if role == nil {
		return nil, nil, ErrRoleNotFound
	}
	return user, role, nil
}
