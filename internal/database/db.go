package database

import (
	"errors"
	"fmt"

	"github.com/Baaaki/gameshelf/internal/config"
	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the database selected by cfg.DatabaseDriver.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	logLevel := gormlogger.Warn
	if !cfg.IsProduction() {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.DatabaseDriver == "sqlite" {
		// SQLite allows a single writer; serialize through one connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
	}

	logger.Log.Info("Database connected", zap.String("driver", cfg.DatabaseDriver))
	return db, nil
}

// Migrate creates or updates the schema and seeds the built-in roles.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Document{},
		&models.Game{},
		&models.Loan{},
		&models.Token{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := SeedRoles(db); err != nil {
		return err
	}

	logger.Log.Info("Database migration completed")
	return nil
}

// SeedRoles inserts any missing built-in role.
func SeedRoles(db *gorm.DB) error {
	for _, builtin := range models.BuiltinRoles {
		var role models.Role
		err := db.Where("name = ?", builtin.Name).First(&role).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seed role %s: %w", builtin.Name, err)
		}
		role = builtin
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", builtin.Name, err)
		}
		logger.Log.Info("Seeded role", zap.String("role", builtin.Name))
	}
	return nil
}
