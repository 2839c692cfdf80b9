package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const filePrefix = "file://"

func (db *DB) migrator(migrationsPath string) (*migrate.Migrate, error) {
	m, err := migrate.New(filePrefix+migrationsPath, db.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: create migration instance: %w", err)
	}
	return m, nil
}

// RunMigrationsUp applies all up migrations
func (db *DB) RunMigrationsUp(migrationsPath string) error {
	db.log.InfoF("Running up migrations on %s", maskDSN(db.DSN))
	m, err := db.migrator(migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			db.log.Info("No new up migrations to apply")
			return nil
		}
		return fmt.Errorf("postgres: apply up migrations: %w", err)
	}
	db.log.Info("Up migrations applied successfully")
	return nil
}

// RunMigrationsDown rolls back all migrations
func (db *DB) RunMigrationsDown(migrationsPath string) error {
	db.log.InfoF("Running down migrations on %s", maskDSN(db.DSN))
	m, err := db.migrator(migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			db.log.Info("No down migrations to apply")
			return nil
		}
		return fmt.Errorf("postgres: apply down migrations: %w", err)
	}
	db.log.Info("Down migrations applied successfully")
	return nil
}

// RunMigrationsVersion returns the current migration version
func (db *DB) RunMigrationsVersion(migrationsPath string) (uint, bool, error) {
	m, err := db.migrator(migrationsPath)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, fmt.Errorf("postgres: migration version: %w", err)
	}
	return version, dirty, nil
}
