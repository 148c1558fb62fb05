package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Smart123s/FastLogin/internal/migration"
)

const (
	tableName       = "premium"
	requiredVersion = 2
)

// explicit aliases keep the result columns independent of how the table was declared
const selectColumns = "UserID AS userid, UUID AS uuid, Name AS name, Premium AS premium, " +
	"Floodgate AS floodgate, LastIp AS lastip, LastLogin AS lastlogin"

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrDuplicateName   = errors.New("profile name already taken")
)

type Repository interface {
	// LoadByName never fails: an absent row or a storage fault yields a fresh unsaved profile.
	LoadByName(ctx context.Context, name string) *StoredProfile
	LoadByUUID(ctx context.Context, id uuid.UUID) (*StoredProfile, error)
	Save(ctx context.Context, p *StoredProfile) error
}

// Schema is the versioned premium table.
var Schema migration.LegacyTable = schema{}

type schema struct{}

func (schema) TableName() string {
	return tableName
}

func (schema) RequiredVersion() int {
	return requiredVersion
}

// PredatesLedger reports that premium tables from before the ledger hold live v1 data.
func (schema) PredatesLedger() bool {
	return true
}

type Storage struct {
	schema

	db       *gorm.DB
	migrator *migration.Migrator
	logger   *zap.Logger
	now      func() time.Time
}

var (
	_ Repository            = (*Storage)(nil)
	_ migration.LegacyTable = (*Storage)(nil)
)

func NewStorage(db *gorm.DB, migrator *migration.Migrator, logger *zap.Logger) *Storage {
	return &Storage{
		db:       db,
		migrator: migrator,
		logger:   logger,
		now:      time.Now,
	}
}

// Init brings the table schema up to date. It must run before any load or save.
func (s *Storage) Init(ctx context.Context) error {
	if err := s.migrator.Bootstrap(ctx); err != nil {
		s.logger.Error("failed to create migration ledger", zap.Error(err))
		return err
	}

	applied, err := s.migrator.EnsureCurrent(ctx, s)
	if err != nil {
		return err
	}

	if applied > 0 {
		s.logger.Info("profile table migrated",
			zap.Int("applied", applied),
			zap.Int("version", requiredVersion))
	}
	return nil
}

func (s *Storage) LoadByName(ctx context.Context, name string) *StoredProfile {
	var row premiumRow
	err := s.db.WithContext(ctx).
		Select(selectColumns).
		Where("LOWER(Name) = LOWER(?)", name).
		Take(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("failed to load profile",
				zap.String("name", name),
				zap.Error(err))
		}
		return NewProfile(name)
	}

	return row.toProfile()
}

func (s *Storage) LoadByUUID(ctx context.Context, id uuid.UUID) (*StoredProfile, error) {
	var row premiumRow
	err := s.db.WithContext(ctx).
		Select(selectColumns).
		Where("UUID = ?", formatID(id)).
		Order("UserID").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		s.logger.Error("failed to load profile",
			zap.Stringer("uuid", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to load profile %s: %w", id, err)
	}

	return row.toProfile(), nil
}

// Save inserts an unsaved profile and records its generated row id, or updates a saved one
// by row id. The profile's lock is held for the whole sequence.
func (s *Storage) Save(ctx context.Context, p *StoredProfile) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	lastLogin := s.now()
	row := premiumRow{
		UserID:    p.rowID,
		Name:      p.name,
		Premium:   p.premium,
		Floodgate: p.floodgate.nullBool(),
		LastIP:    p.lastIP,
		LastLogin: lastLogin,
	}
	if p.hasID {
		row.UUID.String = formatID(p.id)
		row.UUID.Valid = true
	}

	db := s.db.WithContext(ctx)
	if p.rowID == 0 {
		if err := db.Create(&row).Error; err != nil {
			return s.saveError(p.name, err)
		}
		p.rowID = row.UserID
	} else {
		result := db.Model(&premiumRow{}).
			Where("UserID = ?", p.rowID).
			Updates(map[string]any{
				"uuid":      row.UUID,
				"name":      row.Name,
				"premium":   row.Premium,
				"floodgate": row.Floodgate,
				"lastip":    row.LastIP,
				"lastlogin": row.LastLogin,
			})
		if result.Error != nil {
			return s.saveError(p.name, result.Error)
		}
		if result.RowsAffected == 0 {
			return s.saveError(p.name, ErrProfileNotFound)
		}
	}

	p.lastLogin = lastLogin
	return nil
}

func (s *Storage) saveError(name string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	s.logger.Error("failed to save profile",
		zap.String("name", name),
		zap.Error(err))
	return fmt.Errorf("failed to save profile %s: %w", name, err)
}
