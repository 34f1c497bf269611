// Package eventlog persists committed ledger events to a SQL database so they
// can be listed after a restart.
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"yieldsplit/core/events"
	"yieldsplit/core/types"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

const maxListLimit = 1000

var ErrUnknownDriver = errors.New("eventlog: unknown driver")

// Record is one committed event row.
type Record struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	UID        uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Height     uint64    `gorm:"index"`
	Type       string    `gorm:"index;size:64"`
	Attributes string    `gorm:"type:text"`
	CreatedAt  time.Time
}

// TableName keeps the table name stable across gorm naming strategies.
func (Record) TableName() string { return "ledger_events" }

// Event decodes the stored row back into an event payload.
func (r Record) Event() (*types.Event, error) {
	attrs := map[string]string{}
	if r.Attributes != "" {
		if err := json.Unmarshal([]byte(r.Attributes), &attrs); err != nil {
			return nil, fmt.Errorf("eventlog: decode record %d: %w", r.ID, err)
		}
	}
	return &types.Event{Type: r.Type, Height: r.Height, Attributes: attrs}, nil
}

// Log writes events through gorm.
type Log struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open connects to driver/dsn and migrates the schema.
func Open(driver, dsn string, log *slog.Logger) (*Log, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", driver, err)
	}
	return New(db, log)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB, log *slog.Logger) (*Log, error) {
	if db == nil {
		return nil, errors.New("eventlog: database required")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("eventlog: migrate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Log{db: db, logger: log, now: time.Now}, nil
}

// Append stores one event.
func (l *Log) Append(ctx context.Context, evt *types.Event) error {
	if evt == nil || evt.Type == "" {
		return errors.New("eventlog: event type required")
	}
	attrs, err := json.Marshal(evt.Attributes)
	if err != nil {
		return fmt.Errorf("eventlog: encode attributes: %w", err)
	}
	record := Record{
		UID:        uuid.New(),
		Height:     evt.Height,
		Type:       evt.Type,
		Attributes: string(attrs),
		CreatedAt:  l.now().UTC(),
	}
	return l.db.WithContext(ctx).Create(&record).Error
}

// Emit satisfies events.Emitter. Storage failures are logged; the ledger commit
// has already happened and is not affected.
func (l *Log) Emit(evt events.Event) {
	if l == nil || evt == nil {
		return
	}
	if err := l.Append(context.Background(), evt.Event()); err != nil {
		l.logger.Warn("event log append failed",
			slog.String("type", evt.EventType()),
			slog.Any("error", err))
	}
}

// List returns the newest events first, optionally filtered by type.
func (l *Log) List(ctx context.Context, eventType string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query := l.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if eventType = strings.TrimSpace(eventType); eventType != "" {
		query = query.Where("type = ?", eventType)
	}
	var records []Record
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("eventlog: list: %w", err)
	}
	return records, nil
}

// Close releases the underlying connection pool.
func (l *Log) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
