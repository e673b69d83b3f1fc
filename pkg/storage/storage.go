package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	open   gorm.Dialector
	db     *gorm.DB
	logger logger.Interface
}

func New(dbType, dbConn string, debug bool) (*Store, error) {
	var open gorm.Dialector
	switch dbType {
	case "postgres":
		open = postgres.Open(dbConn)
	case "mysql":
		open = mysql.Open(dbConn)
	case "sqlite":
		open = sqlite.Open(dbConn)
	default:
		return nil, fmt.Errorf("storage: unknown db type: %s", dbType)
	}
	l := logger.Default.LogMode(logger.Silent)
	if debug {
		l = logger.Default.LogMode(logger.Warn)
	}
	return &Store{
		open:   open,
		logger: l,
	}, nil
}

// Open creates and starts a store, running the migrations. It returns nil
// without error when dbType is empty, meaning the ledger is disabled.
func Open(ctx context.Context, dbType, dbConn string, debug bool) (*Store, error) {
	if dbType == "" {
		return nil, nil
	}
	s, err := New(dbType, dbConn, debug)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Start(ctx context.Context) error {
	// Launch the database connection in a goroutine so we can timeout if it
	// takes too long.
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	errC := make(chan error, 1)
	go func() {
		db, err := gorm.Open(s.open, &gorm.Config{
			Logger: s.logger,
		})
		if err != nil {
			errC <- fmt.Errorf("storage: failed to open database: %w", err)
			return
		}
		s.db = db
		errC <- nil
	}()
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("storage: timed out opening database: %w", ctx.Err())
		}
		return ctx.Err()
	case err := <-errC:
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Stop() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("storage: couldn't get database: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("storage: couldn't close database: %w", err)
	}
	return nil
}

func (s *Store) Migrate(ctx context.Context) error {
	init := !s.db.Migrator().HasTable(&Run{})

	// Custom migrations
	if err := s.customMigrate(init); err != nil {
		return err
	}

	// Auto migrations
	if err := s.db.AutoMigrate(
		&Run{},
		&File{},
	); err != nil {
		return fmt.Errorf("storage: failed to migrate database: %w", err)
	}
	return nil
}

// schemaVersion is bumped together with a custom migration step whenever a
// change can't be handled by gorm auto migrations.
const schemaVersion = 1

func (s *Store) customMigrate(init bool) error {
	if !s.db.Migrator().HasTable(&Migration{}) {
		if err := s.db.Migrator().CreateTable(&Migration{}); err != nil {
			return fmt.Errorf("storage: failed to create table migrations: %w", err)
		}
		if err := s.db.Save(&Migration{ID: NewID(), Version: schemaVersion}).Error; err != nil {
			return fmt.Errorf("storage: failed to save migration version: %w", err)
		}
		return nil
	}

	var migration Migration
	if err := s.db.First(&migration).Error; err != nil {
		return fmt.Errorf("storage: failed to get migration version: %w", err)
	}
	if migration.Version > schemaVersion {
		return fmt.Errorf("storage: database version %d is newer than %d", migration.Version, schemaVersion)
	}
	if init || migration.Version == schemaVersion {
		return nil
	}
	log.Printf("storage: migrating from version %d to %d\n", migration.Version, schemaVersion)
	migration.Version = schemaVersion
	if err := s.db.Save(&migration).Error; err != nil {
		return fmt.Errorf("storage: failed to save migration version: %w", err)
	}
	return nil
}

// NewID returns a new sortable unique id.
func NewID() string {
	return ulid.Make().String()
}

type Filter struct {
	Query interface{}
	Args  []interface{}
}

func Where(query interface{}, args ...interface{}) Filter {
	return Filter{
		Query: query,
		Args:  args,
	}
}
