package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Smart123s/FastLogin/internal/config"
)

type Manager struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	config *config.DatabaseConfig
	logger *zap.Logger
}

func NewManager(config *config.DatabaseConfig, log *zap.Logger) (*Manager, error) {
	db, err := newDatabase(config, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", config.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}

	if config.Driver == "sqlite" && isMemory(config.Path) {
		// every connection to :memory: would see its own empty database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	return &Manager{
		db:     db,
		sqlDB:  sqlDB,
		config: config,
		logger: log,
	}, nil
}

func (m *Manager) DB() *gorm.DB {
	return m.db
}

func (m *Manager) SQL() *sql.DB {
	return m.sqlDB
}

func (m *Manager) Driver() string {
	return m.config.Driver
}

func (m *Manager) Ping(ctx context.Context) error {
	return m.sqlDB.PingContext(ctx)
}

func (m *Manager) Close() error {
	return m.sqlDB.Close()
}

func newDatabase(config *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	switch config.Driver {
	case "sqlite":
		return gorm.Open(sqlite.Open(DSN(config)), gormConfig(config, log))
	case "postgres":
		return gorm.Open(postgres.Open(DSN(config)), gormConfig(config, log))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}
}

// Wrap opens gorm over a connection pool the caller already owns.
func Wrap(config *config.DatabaseConfig, conn *sql.DB, log *zap.Logger) (*gorm.DB, error) {
	switch config.Driver {
	case "sqlite":
		return gorm.Open(sqlite.New(sqlite.Config{Conn: conn}), gormConfig(config, log))
	case "postgres":
		return gorm.Open(postgres.New(postgres.Config{Conn: conn}), gormConfig(config, log))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}
}

func gormConfig(config *config.DatabaseConfig, log *zap.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			zap.NewStdLog(log.Named("gorm")),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logLevel(config.LogLevel),
				IgnoreRecordNotFoundError: true,
			},
		),
		TranslateError: true,
	}
}

// DSN builds the connection string for the configured driver.
func DSN(config *config.DatabaseConfig) string {
	if config.Driver != "postgres" {
		return config.Path
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		config.Host,
		config.User,
		config.Password,
		config.Name,
		config.Port,
		config.SSLMode,
	)
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
