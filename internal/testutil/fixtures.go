package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/Baaaki/gameshelf/internal/auth"
	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/utils"
	"gorm.io/gorm"
)

const DefaultPassword = "Test123456"

func builtinRoleNames() []string {
	names := make([]string, 0, len(models.BuiltinRoles))
	for _, r := range models.BuiltinRoles {
		names = append(names, r.Name)
	}
	return names
}

// CreateTestUser inserts a user with DefaultPassword and the given role names
// (ROLE_USER when none are given). The returned user has roles loaded.
func CreateTestUser(t *testing.T, db *gorm.DB, publicName string, roleNames ...string) *models.User {
	t.Helper()
	if len(roleNames) == 0 {
		roleNames = []string{models.RoleUser}
	}

	hash, err := utils.HashPassword(DefaultPassword)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	var roles []models.Role
	if err := db.Where("name IN ?", roleNames).Find(&roles).Error; err != nil {
		t.Fatalf("Failed to load roles: %v", err)
	}

	user := &models.User{
		Name:         strings.ToUpper(publicName[:1]) + publicName[1:],
		PublicName:   publicName,
		Email:        publicName + "@example.com",
		PasswordHash: hash,
		Province:     "Madrid",
		City:         "Madrid",
		RegisteredAt: time.Now().UTC(),
		Roles:        roles,
	}
	if err := db.Omit("Roles.*").Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", publicName, err)
	}
	return user
}

// CreateTestGame inserts an AVAILABLE game owned by owner.
func CreateTestGame(t *testing.T, db *gorm.DB, owner *models.User, title string) *models.Game {
	t.Helper()
	game := &models.Game{
		Title:    title,
		Platform: "SNES",
		Genre:    "RPG",
		Status:   models.GameAvailable,
		OwnerID:  owner.ID,
	}
	if err := db.Omit("Owner", "Image", "CatalogGame").Create(game).Error; err != nil {
		t.Fatalf("Failed to create game %s: %v", title, err)
	}
	return game
}

// CreateCatalogGame inserts a catalog template owned by admin.
func CreateCatalogGame(t *testing.T, db *gorm.DB, admin *models.User, title string) *models.Game {
	t.Helper()
	game := CreateTestGame(t, db, admin, title)
	if err := db.Model(game).Update("is_catalog", true).Error; err != nil {
		t.Fatalf("Failed to flag catalog game: %v", err)
	}
	game.IsCatalog = true
	return game
}

// PrincipalOf builds the principal the auth middleware would produce.
func PrincipalOf(u *models.User) *auth.Principal {
	return auth.FromUser(u)
}
