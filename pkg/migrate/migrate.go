// Package migrate applies the goose SQL migrations, either from a directory
// on disk or from the copy embedded in the binary.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where the migrations live relative to the repository root.
// An empty dir selects the embedded copy.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// goose keeps its dialect and base filesystem in package globals.
var gooseMu sync.Mutex

func withGoose(dir string, fn func(dir string) error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if dir == "" {
		goose.SetBaseFS(embedded)
		dir = "migrations"
	} else {
		goose.SetBaseFS(nil)
	}
	return fn(dir)
}

// Run executes a goose command such as "up", "down", "redo" or "status".
func Run(ctx context.Context, db *sql.DB, dir, command string, args ...string) error {
	if db == nil {
		return errors.New("migrate: nil db")
	}
	return withGoose(dir, func(dir string) error {
		if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
			return fmt.Errorf("goose %s: %w", command, err)
		}
		return nil
	})
}

// Version is the most recently applied migration, or 0 on a fresh database.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := withGoose("", func(string) error {
		var err error
		v, err = goose.GetDBVersionContext(ctx, db)
		return err
	})
	return v, err
}

// MigrateToVersion moves the schema up or down to target, given in the
// YYYYMMDDHHMMSS form the migration files are named with.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir, target string) error {
	want, err := strconv.ParseInt(target, 10, 64)
	if err != nil || want <= 0 {
		return fmt.Errorf("migrate: version %q is not YYYYMMDDHHMMSS", target)
	}
	current, err := Version(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate: current version: %w", err)
	}
	return withGoose(dir, func(dir string) error {
		switch {
		case current < want:
			return goose.UpToContext(ctx, db, dir, want)
		case current > want:
			return goose.DownToContext(ctx, db, dir, want)
		}
		return nil
	})
}
