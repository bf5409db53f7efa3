package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// EmbeddedDir is the directory name inside the embedded migration filesystem.
const EmbeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// goose keeps its dialect and base filesystem in package globals.
var gooseMu sync.Mutex

// Source is where goose reads migration files from. A nil FS means the local disk.
type Source struct {
	FS  fs.FS
	Dir string
}

// Embedded returns the migrations compiled into the binary.
func Embedded() Source {
	return Source{FS: embedded, Dir: EmbeddedDir}
}

// SourceFor picks the directory on disk when one is configured, else the embedded set.
func SourceFor(dir string) Source {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return Embedded()
	}
	return Source{Dir: dir}
}

func (s Source) String() string {
	if s.FS != nil {
		return "embedded:" + s.Dir
	}
	return s.Dir
}

func (s Source) use() (func(), error) {
	if s.Dir == "" {
		return nil, fmt.Errorf("migration dir is required")
	}
	gooseMu.Lock()
	goose.SetBaseFS(s.FS)
	release := func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}
	if err := goose.SetDialect("postgres"); err != nil {
		release()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	return release, nil
}

// Run executes a standard goose command that requires a DB connection.
func Run(ctx context.Context, db *sql.DB, src Source, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	release, err := src.use()
	if err != nil {
		return err
	}
	defer release()

	// RunContext prints status output to stdout (goose internal)
	if err := goose.RunContext(ctx, command, db, src.Dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion migrates up or down to targetVersion depending on the current DB version.
func MigrateToVersion(ctx context.Context, db *sql.DB, src Source, targetVersion string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil || len(targetVersion) != len(versionLayout) {
		return fmt.Errorf("invalid version %q (expected %s)", targetVersion, versionHint)
	}

	release, err := src.use()
	if err != nil {
		return err
	}
	defer release()

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, src.Dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, db, src.Dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
