package database

import (
	"strings"

	"github.com/arnold/pursue-api/internal/config"
	"github.com/arnold/pursue-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var dialector gorm.Dialector

	// Use PostgreSQL if URL starts with postgres, otherwise SQLite
	if strings.HasPrefix(cfg.DatabaseURL, "postgres") {
		dialector = postgres.Open(cfg.DatabaseURL)
	} else {
		dialector = sqlite.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		// Unique-constraint races must surface as gorm.ErrDuplicatedKey so
		// the progress ledger and nudge guard can map them to typed outcomes.
		TranslateError: true,
	})
	if err != nil {
		return err
	}

	DB = db
	return nil
}

func Migrate() error {
	return DB.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupInvite{},
		&models.Goal{},
		&models.ProgressEntry{},
		&models.Nudge{},
		&models.NudgeQuota{},
		&models.Notification{},
		&models.Activity{},
	)
}
