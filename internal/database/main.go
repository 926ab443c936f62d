package database

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/mattn/go-sqlite3"
)

const busyTimeoutMillis = 5000

// DatabaseInst is the account store. Every query holds dbLock, so one
// connection is enough.
type DatabaseInst struct {
	db     *sql.DB
	dbLock sync.Mutex
}

// InitDatabase opens the sqlite file and applies every pending migration
// from migrationDir.
func InitDatabase(filePath string, migrationDir string) (*DatabaseInst, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=%d", filePath, busyTimeoutMillis))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db, migrationDir); err != nil {
		db.Close()
		return nil, err
	}

	return &DatabaseInst{db: db}, nil
}

func applyMigrations(db *sql.DB, migrationDir string) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance("file://"+migrationDir, "cpstats", driver)
	if err != nil {
		return fmt.Errorf("failed to load migrations from %s: %w", migrationDir, err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (d *DatabaseInst) Close() error {
	d.dbLock.Lock()
	defer d.dbLock.Unlock()
	return d.db.Close()
}
