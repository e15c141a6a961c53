// Package migrations holds the run journal schema and applies it with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// ErrSchemaAhead means the journal was written by a newer metafix.
var ErrSchemaAhead = errors.New("journal schema is newer than this binary")

// ErrSchemaDirty means an earlier migration stopped half way.
var ErrSchemaDirty = errors.New("journal schema is in a dirty state")

// State describes where a database stands relative to the embedded migrations.
type State struct {
	Current uint // 0 when no migration has run
	Latest  uint
}

// Pending reports whether migrations remain to be applied.
func (s State) Pending() bool {
	return s.Current < s.Latest
}

// Inspect reads the schema version of db without changing it.
func Inspect(db *sql.DB) (State, error) {
	latest, err := LatestVersion()
	if err != nil {
		return State{}, err
	}

	m, err := newMigrate(db)
	if err != nil {
		return State{}, err
	}
	// m is not closed: closing it would close db, which the caller owns.

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return State{Latest: latest}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("reading schema version: %w", err)
	}
	if dirty {
		return State{}, fmt.Errorf("%w at version %d", ErrSchemaDirty, version)
	}
	if version > latest {
		return State{}, fmt.Errorf("%w: version %d, binary knows %d", ErrSchemaAhead, version, latest)
	}
	return State{Current: version, Latest: latest}, nil
}

// MigrateUp applies every pending migration. An up-to-date database is left alone.
func MigrateUp(db *sql.DB) error {
	state, err := Inspect(db)
	if err != nil {
		return err
	}
	if !state.Pending() {
		return nil
	}

	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating journal schema: %w", err)
	}
	return nil
}

// LatestVersion is the highest migration version embedded in the binary.
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("reading embedded migrations: %w", err)
	}
	defer src.Close()
	return lastVersion(src)
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("reading embedded migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

func lastVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}
