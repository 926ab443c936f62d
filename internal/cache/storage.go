package cache

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/gofiber/storage/sqlite3/v2"
)

const (
	ProfileTable = "profile_cache"
	ContestTable = "contest_cache"
)

// OpenSQLite opens one table of the cache database at path. An empty path
// gives a process-local memory store instead.
func OpenSQLite(path string, table string) fiber.Storage {
	if path == "" {
		return NewMemory()
	}
	return sqlite3.New(sqlite3.Config{
		Database:   path,
		Table:      table,
		GCInterval: 10 * time.Minute,
	})
}

// NewMemory returns a store that lives only as long as the process.
func NewMemory() fiber.Storage {
	return memory.New(memory.Config{
		GCInterval: time.Minute,
	})
}
