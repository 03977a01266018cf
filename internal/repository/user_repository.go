package repository

import (
	"context"
	"errors"

	"github.com/Baaaki/gameshelf/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts the user and its role links. Roles must already exist.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Roles.*").Create(user).Error
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string, rels ...Relation) (*models.User, error) {
	return r.first(ctx, rels, "email = ?", email)
}

func (r *UserRepository) GetUserByPublicName(ctx context.Context, publicName string) (*models.User, error) {
	return r.first(ctx, nil, "public_name = ?", publicName)
}

func (r *UserRepository) GetUserByID(ctx context.Context, id uint, rels ...Relation) (*models.User, error) {
	return r.first(ctx, rels, "id = ?", id)
}

// first returns nil, nil when no row matches.
func (r *UserRepository) first(ctx context.Context, rels []Relation, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := preload(r.db.WithContext(ctx), rels).Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ListUsers(ctx context.Context, rels ...Relation) ([]models.User, error) {
	var users []models.User
	err := preload(r.db.WithContext(ctx), rels).Order("registered_at DESC").Find(&users).Error
	return users, err
}

// UpdateUser persists scalar columns only; associations are managed through
// AddRole/RemoveRole.
func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error
}

func (r *UserRepository) AddRole(ctx context.Context, user *models.User, role *models.Role) error {
	return r.db.WithContext(ctx).Model(user).Association("Roles").Append(role)
}

func (r *UserRepository) RemoveRole(ctx context.Context, user *models.User, role *models.Role) error {
	return r.db.WithContext(ctx).Model(user).Association("Roles").Delete(role)
}

// DeleteUser removes the user together with tokens, loan history, owned games
// and role links. Run it inside a transaction.
func (r *UserRepository) DeleteUser(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)

	if err := db.Where("user_id = ?", id).Delete(&models.Token{}).Error; err != nil {
		return err
	}
	ownedGames := func() *gorm.DB {
		return db.Model(&models.Game{}).Select("id").Where("owner_id = ?", id)
	}
	if err := db.Where("lender_id = ? OR borrower_id = ? OR game_id IN (?)", id, id, ownedGames()).
		Delete(&models.Loan{}).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Game{}).Where("catalog_game_id IN (?)", ownedGames()).
		Update("catalog_game_id", nil).Error; err != nil {
		return err
	}
	if err := db.Where("owner_id = ?", id).Delete(&models.Game{}).Error; err != nil {
		return err
	}
	if err := db.Exec("DELETE FROM user_roles WHERE user_id = ?", id).Error; err != nil {
		return err
	}
	return db.Delete(&models.User{}, id).Error
}
