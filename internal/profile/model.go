package profile

import (
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FloodgateState records whether a profile belongs to a bedrock account linked through
// floodgate. Rows written before the flag existed read back as FloodgateUnknown.
type FloodgateState int

const (
	FloodgateUnknown FloodgateState = iota
	FloodgateFalse
	FloodgateTrue
)

func (s FloodgateState) String() string {
	switch s {
	case FloodgateFalse:
		return "false"
	case FloodgateTrue:
		return "true"
	default:
		return "unknown"
	}
}

// FloodgateOf maps a known boolean to its state.
func FloodgateOf(bedrock bool) FloodgateState {
	if bedrock {
		return FloodgateTrue
	}
	return FloodgateFalse
}

func (s FloodgateState) nullBool() sql.NullBool {
	if s == FloodgateUnknown {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: s == FloodgateTrue, Valid: true}
}

func floodgateFromNull(v sql.NullBool) FloodgateState {
	if !v.Valid {
		return FloodgateUnknown
	}
	return FloodgateOf(v.Bool)
}

// StoredProfile is the in-memory identity record of one username. All access goes through
// its own lock, a save holds that lock for the whole insert or update.
type StoredProfile struct {
	mu sync.Mutex

	rowID     int64
	id        uuid.UUID
	hasID     bool
	name      string
	premium   bool
	floodgate FloodgateState
	lastIP    string
	lastLogin time.Time
}

// NewProfile returns an unsaved cracked profile.
func NewProfile(name string) *StoredProfile {
	return &StoredProfile{
		name:      name,
		floodgate: FloodgateUnknown,
		lastLogin: time.Now(),
	}
}

// Snapshot is a consistent copy of a profile's fields.
type Snapshot struct {
	RowID     int64
	ID        uuid.UUID
	HasID     bool
	Name      string
	Premium   bool
	Floodgate FloodgateState
	LastIP    string
	LastLogin time.Time
}

func (p *StoredProfile) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Snapshot{
		RowID:     p.rowID,
		ID:        p.id,
		HasID:     p.hasID,
		Name:      p.name,
		Premium:   p.premium,
		Floodgate: p.floodgate,
		LastIP:    p.lastIP,
		LastLogin: p.lastLogin,
	}
}

func (p *StoredProfile) RowID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rowID
}

func (p *StoredProfile) IsSaved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rowID > 0
}

func (p *StoredProfile) ID() (uuid.UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id, p.hasID
}

func (p *StoredProfile) SetID(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id = id
	p.hasID = id != uuid.Nil
}

func (p *StoredProfile) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *StoredProfile) SetName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}

func (p *StoredProfile) Premium() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.premium
}

func (p *StoredProfile) SetPremium(premium bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.premium = premium
}

func (p *StoredProfile) Floodgate() FloodgateState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.floodgate
}

func (p *StoredProfile) SetFloodgate(state FloodgateState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.floodgate = state
}

func (p *StoredProfile) LastIP() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastIP
}

func (p *StoredProfile) SetLastIP(ip string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastIP = ip
}

func (p *StoredProfile) LastLogin() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastLogin
}

// premiumRow is the persisted form of a profile. Column names match the legacy schema.
type premiumRow struct {
	UserID    int64          `gorm:"column:userid;primaryKey;autoIncrement"`
	UUID      sql.NullString `gorm:"column:uuid"`
	Name      string         `gorm:"column:name"`
	Premium   bool           `gorm:"column:premium"`
	Floodgate sql.NullBool   `gorm:"column:floodgate"`
	LastIP    string         `gorm:"column:lastip"`
	LastLogin time.Time      `gorm:"column:lastlogin"`
}

func (premiumRow) TableName() string {
	return tableName
}

func (r *premiumRow) toProfile() *StoredProfile {
	p := &StoredProfile{
		rowID:     r.UserID,
		name:      r.Name,
		premium:   r.Premium,
		floodgate: floodgateFromNull(r.Floodgate),
		lastIP:    r.LastIP,
		lastLogin: r.LastLogin,
	}
	if r.UUID.Valid {
		if id, err := uuid.Parse(r.UUID.String); err == nil {
			p.id = id
			p.hasID = true
		}
	}
	return p
}

// formatID stores ids in the identity service's dashless form.
func formatID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}
