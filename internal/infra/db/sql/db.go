package sql

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

var ErrUnknownDialect = errors.New("sql: unknown dialect")

// Open connects through gorm. MySQL DSNs need parseTime=true for DATE columns.
func Open(dialect, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case DialectPostgres:
		dialector = postgres.Open(dsn)
	case DialectMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the reservation tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&listingRow{},
		&slotRow{},
		&bookingRow{},
		&outboxRow{},
		&idempotencyRow{},
	)
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ParseIsolation maps a config value such as "serializable" or
// "read_committed" to a driver isolation level. Empty means serializable.
func ParseIsolation(value string) (stdsql.IsolationLevel, error) {
	normalized := strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case "", "serializable":
		return stdsql.LevelSerializable, nil
	case "repeatable read":
		return stdsql.LevelRepeatableRead, nil
	case "read committed":
		return stdsql.LevelReadCommitted, nil
	}
	return stdsql.LevelDefault, fmt.Errorf("sql: unsupported isolation %q", value)
}
