// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrindex

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrateSchema runs every pending schema migration against the sqlite3
// database at path, ahead of the gorm connection addrindex queries
// through. Keeping schema changes in versioned .sql files rather than
// gorm's AutoMigrate lets a deployment inspect and roll back a release
// independently of the running binary.
func migrateSchema(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return errors.Wrap(err, "opening sqlite3 database for migration")
	}
	defer db.Close()

	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return errors.Wrap(err, "constructing sqlite3 migration driver")
	}

	srcDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return errors.Wrap(err, "opening embedded migrations")
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "sqlite3", dbDriver)
	if err != nil {
		return errors.Wrap(err, "constructing migrator")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "applying address index migrations")
	}
	return nil
}
