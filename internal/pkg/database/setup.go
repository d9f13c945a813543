package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/internal/pkg/config"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

// SetupDatabase opens the MySQL connection, retrying while the server comes
// up. With autoMigrate set the schema is synced from the models; production
// runs the SQL migrations in migrations/ instead.
func SetupDatabase(cfg config.DBConfig, autoMigrate bool) (*gorm.DB, error) {
	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       cfg.DSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  false,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{
			// unique violations surface as gorm.ErrDuplicatedKey
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Warn),
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		if err == nil {
			if autoMigrate {
				if err = Migrate(DB); err != nil {
					return nil, err
				}
			}
			return DB, nil
		}

		log.Warnf("[Database] Failed to connect (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("[Database] Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	return nil, fmt.Errorf("connect database: %w", err)
}

// Migrate syncs the tables of all persisted models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.WebhookEvent{},
		&models.Submission{},
		&models.Template{},
		&models.Assignment{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// GetDB returns the connection opened by SetupDatabase.
func GetDB() *gorm.DB {
	return DB
}

// Close releases the underlying connection pool.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
