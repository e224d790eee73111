package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"map_exhibits/internal/logger"
	"map_exhibits/internal/models"
)

var (
	// DB is the globally accessible database handle
	DB *gorm.DB
)

// InitDB connects to the database named by the environment and migrates
// the schema. DB_DRIVER=sqlite selects the local file at SQLITE_PATH; a
// Postgres connection that cannot be reached falls back to it as well.
func InitDB(s Settings) error {
	var (
		db  *gorm.DB
		err error
	)

	switch s.DBDriver {
	case "sqlite":
		db, err = OpenSQLite(s.SQLitePath)
	default:
		db, err = OpenPostgres(s)
		if err != nil {
			logrus.WithError(err).Warn("Postgres unavailable, falling back to SQLite.")
			db, err = OpenSQLite(s.SQLitePath)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return err
	}

	// Assign to global
	DB = db
	return nil
}

// OpenPostgres opens and pings the Postgres database.
func OpenPostgres(s Settings) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		s.DBHost, s.DBUser, s.DBPassword, s.DBName, s.DBPort, s.DBSSLMode, s.DBTimezone,
	)

	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	logrus.WithFields(logrus.Fields{"host": s.DBHost, "database": s.DBName}).Info("Connected to Postgres.")
	return db, nil
}

// OpenSQLite opens a SQLite database file. An empty path opens a shared
// in-memory database.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	logrus.WithField("path", dsn).Info("Using SQLite database.")
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Exhibit{}, &models.Record{}); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.New(logger.GormLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// GetDB returns the initialized DB handle
func GetDB() *gorm.DB {
	return DB
}
