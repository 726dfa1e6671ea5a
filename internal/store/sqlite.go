package store

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var memoryDBSeq atomic.Int64

// OpenSQLite opens a sqlite database at path. An empty path opens a private
// in-memory database.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:mapdrive_%d?mode=memory&cache=shared", memoryDBSeq.Add(1))
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// DumpToDisk writes a point-in-time copy of db to path via VACUUM INTO,
// replacing any previous dump.
func DumpToDisk(db *gorm.DB, path string) error {
	if path == "" {
		return fmt.Errorf("sqlite dump path not set")
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}
	if err := db.Exec("VACUUM INTO ?", path).Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return nil
}

// SQLiteConfig holds the sqlite backend settings.
type SQLiteConfig struct {
	// Path is the database file; empty keeps the database in memory.
	Path         string
	DumpPath     string
	DumpInterval time.Duration
}

// SQLite is the gorm store on sqlite, with a periodic disk dump when the
// database lives in memory.
type SQLite struct {
	*Gorm
	cfg      SQLiteConfig
	log      *slog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSQLite opens the database and starts the dump goroutine if configured.
func NewSQLite(cfg SQLiteConfig, log *slog.Logger) (*SQLite, error) {
	db, err := OpenSQLite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	g, err := NewGorm(db)
	if err != nil {
		return nil, err
	}

	s := &SQLite{
		Gorm:     g,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}
	if cfg.Path == "" && cfg.DumpPath != "" && cfg.DumpInterval > 0 {
		s.wg.Add(1)
		go s.dumpLoop()
	}
	return s, nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (s *SQLite) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	if s.cfg.Path == "" && s.cfg.DumpPath != "" {
		if err := DumpToDisk(s.db, s.cfg.DumpPath); err != nil {
			s.log.Error("Final dump failed", "error", err)
		}
	}
	return s.Gorm.Close()
}

func (s *SQLite) dumpLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := DumpToDisk(s.db, s.cfg.DumpPath); err != nil {
				s.log.Error("Error dumping to disk", "error", err)
			} else {
				s.log.Debug("Dumped to disk", "duration", time.Since(start))
			}
		}
	}
}
