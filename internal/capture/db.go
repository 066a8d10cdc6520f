// Package capture persists datagrams seen by the CLI into a sqlite file so a
// session can be inspected after the fact.
package capture

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

type Datagram struct {
	ID         uint   `gorm:"primaryKey"`
	SessionID  string `gorm:"index;not null"`
	Direction  Direction
	Peer       string
	Size       int
	Payload    []byte
	CapturedAt time.Time `gorm:"index"`
}

// Open opens or creates the capture database at path. Use ":memory:" for a
// throwaway store.
func Open(path string, log *logrus.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{PrepareStmt: true}
	if log != nil {
		cfg.Logger = gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("opening capture database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening capture database: %w", err)
	}
	// sqlite serialises writers; one connection also keeps ":memory:" shared
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Datagram{}); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}
