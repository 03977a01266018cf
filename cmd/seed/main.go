package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Baaaki/gameshelf/internal/config"
	"github.com/Baaaki/gameshelf/internal/database"
	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/internal/utils"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"go.uber.org/zap"
)

// seed creates the first administrator, or grants ROLE_ADMIN to an existing
// account with the same email.
func main() {
	cfg := config.Load()
	if err := logger.Init(!cfg.IsProduction()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	adminName := os.Getenv("ADMIN_PUBLIC_NAME")
	adminEmail := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminName == "" || adminEmail == "" || adminPassword == "" {
		logger.Log.Fatal("Missing environment variables: ADMIN_PUBLIC_NAME, ADMIN_EMAIL, ADMIN_PASSWORD")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)

	adminRole, err := roleRepo.GetRoleByName(ctx, models.RoleAdmin)
	if err != nil || adminRole == nil {
		logger.Log.Fatal("ROLE_ADMIN missing after migration", zap.Error(err))
	}

	existing, err := userRepo.GetUserByEmail(ctx, adminEmail, repository.RelRoles)
	if err != nil {
		logger.Log.Fatal("Failed to look up admin", zap.Error(err))
	}
	if existing != nil {
		if existing.HasRole(models.RoleAdmin) {
			logger.Log.Info("Admin user already exists", zap.String("public_name", existing.PublicName))
			return
		}
		if err := userRepo.AddRole(ctx, existing, adminRole); err != nil {
			logger.Log.Fatal("Failed to grant admin role", zap.Error(err))
		}
		logger.Log.Info("Granted ROLE_ADMIN to existing user", zap.String("public_name", existing.PublicName))
		return
	}

	passwordHash, err := utils.HashPassword(adminPassword)
	if err != nil {
		logger.Log.Fatal("Failed to hash password", zap.Error(err))
	}

	userRole, err := roleRepo.GetRoleByName(ctx, models.RoleUser)
	if err != nil || userRole == nil {
		logger.Log.Fatal("ROLE_USER missing after migration", zap.Error(err))
	}

	admin := &models.User{
		Name:         adminName,
		PublicName:   adminName,
		Email:        adminEmail,
		PasswordHash: passwordHash,
		RegisteredAt: time.Now().UTC(),
		Roles:        []models.Role{*userRole, *adminRole},
	}
	if err := userRepo.CreateUser(ctx, admin); err != nil {
		logger.Log.Fatal("Failed to create admin", zap.Error(err))
	}

	logger.Log.Info("Admin user created",
		zap.Uint("user_id", admin.ID),
		zap.String("public_name", admin.PublicName),
		zap.String("email", admin.Email),
	)
}
