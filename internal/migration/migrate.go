package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ledgerTable = "migrations"

var (
	//go:embed bootstrap
	bootstrapFS embed.FS

	//go:embed resources
	resourcesFS embed.FS
)

var ErrMissingMigration = errors.New("migration resource not found")

// Table is a store whose schema is versioned through the migration ledger.
type Table interface {
	TableName() string
	RequiredVersion() int
}

// LegacyTable is implemented by tables that may already exist with live data from a
// release that had no ledger. Such a table without ledger rows is at version 1.
type LegacyTable interface {
	Table
	PredatesLedger() bool
}

type TableStatus struct {
	Name     string
	Current  int
	Required int
}

type Migrator struct {
	db        *gorm.DB
	dialect   Dialect
	resources fs.FS
	logger    *zap.Logger
}

type Option func(*Migrator)

// WithResources replaces the embedded migration statements. Paths inside fsys are
// <dialect>/<table>_v<version>.sql.
func WithResources(fsys fs.FS) Option {
	return func(m *Migrator) {
		m.resources = fsys
	}
}

func NewMigrator(db *gorm.DB, dialect Dialect, logger *zap.Logger, opts ...Option) *Migrator {
	resources, err := fs.Sub(resourcesFS, "resources")
	if err != nil {
		panic(err)
	}

	m := &Migrator{
		db:        db,
		dialect:   dialect,
		resources: resources,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bootstrap creates the ledger table itself through goose.
func (m *Migrator) Bootstrap(ctx context.Context) error {
	fsys, err := fs.Sub(bootstrapFS, path.Join("bootstrap", m.dialect.name))
	if err != nil {
		return fmt.Errorf("failed to open bootstrap migrations: %w", err)
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	provider, err := goose.NewProvider(m.dialect.goose, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("failed to create bootstrap provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run bootstrap migrations: %w", err)
	}

	for _, result := range results {
		m.logger.Info("applied bootstrap migration",
			zap.Int64("version", result.Source.Version),
			zap.Duration("duration", result.Duration))
	}
	return nil
}

// CurrentVersion returns the highest ledger version recorded for table.
func (m *Migrator) CurrentVersion(ctx context.Context, table Table) (int, error) {
	var version sql.NullInt64
	err := m.db.WithContext(ctx).
		Raw("SELECT MAX(version) FROM "+ledgerTable+" WHERE table_name = ?", table.TableName()).
		Row().
		Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to query version of table %s: %w", table.TableName(), err)
	}

	current := int(version.Int64)
	if current == 0 {
		if legacy, ok := table.(LegacyTable); ok && legacy.PredatesLedger() {
			if m.db.WithContext(ctx).Migrator().HasTable(table.TableName()) {
				current = 1
			}
		}
	}

	return current, nil
}

// EnsureCurrent applies every missing version of table in order. Each version runs in its
// own transaction together with its ledger row; the first failure stops the run.
// It returns the number of versions applied.
func (m *Migrator) EnsureCurrent(ctx context.Context, table Table) (int, error) {
	name := table.TableName()

	current, err := m.CurrentVersion(ctx, table)
	if err != nil {
		m.logger.Error("failed to read table version", zap.String("table", name), zap.Error(err))
		return 0, err
	}

	applied := 0
	for version := current; version < table.RequiredVersion(); version++ {
		target := version + 1
		m.logger.Info("starting database migration",
			zap.String("table", name),
			zap.Int("version", target))

		if err := m.migrateTo(ctx, name, target); err != nil {
			m.logger.Error("failed to migrate table",
				zap.String("table", name),
				zap.Int("version", target),
				zap.Error(err))
			return applied, fmt.Errorf("failed to migrate table %s to version %d: %w", name, target, err)
		}

		applied++
		m.logger.Info("table migrated",
			zap.String("table", name),
			zap.Int("version", target))
	}

	return applied, nil
}

func (m *Migrator) Status(ctx context.Context, tables ...Table) ([]TableStatus, error) {
	statuses := make([]TableStatus, 0, len(tables))
	for _, table := range tables {
		current, err := m.CurrentVersion(ctx, table)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, TableStatus{
			Name:     table.TableName(),
			Current:  current,
			Required: table.RequiredVersion(),
		})
	}
	return statuses, nil
}

func (m *Migrator) migrateTo(ctx context.Context, table string, version int) error {
	statements, err := m.statements(table, version)
	if err != nil {
		return err
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, statement := range statements {
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("failed to execute statement: %w", err)
			}
		}

		insert := "INSERT INTO " + ledgerTable + " (table_name, version) VALUES (?, ?)"
		if err := tx.Exec(insert, table, version).Error; err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
}

func (m *Migrator) statements(table string, version int) ([]string, error) {
	name := path.Join(m.dialect.name, fmt.Sprintf("%s_v%d.sql", table, version))
	content, err := fs.ReadFile(m.resources, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingMigration, name)
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return splitStatements(string(content)), nil
}

// splitStatements cuts a resource into statements terminated by a trailing semicolon.
// Comment-only lines are dropped.
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}

		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
