// Package migrate applies the goose SQL migrations that ship inside every
// binary. A directory on disk can replace the embedded set for local work.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// DefaultDir is where new migrations are created on disk.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrator runs migrations against one postgres database.
type Migrator struct {
	provider *goose.Provider
}

// Open binds the migrations in dir, or the embedded ones when dir is empty, to db.
func Open(db *sql.DB, dir string) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	fsys, err := migrationsFS(dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(database.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

func migrationsFS(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, embeddedDir)
	}
	return os.DirFS(dir), nil
}

// Apply runs up, down or status and returns one line per migration touched.
func (m *Migrator) Apply(ctx context.Context, command string) ([]string, error) {
	switch command {
	case "up":
		results, err := m.provider.Up(ctx)
		return describe(results), wrapGoose(command, err)
	case "down":
		result, err := m.provider.Down(ctx)
		if result == nil {
			return nil, wrapGoose(command, err)
		}
		return describe([]*goose.MigrationResult{result}), wrapGoose(command, err)
	case "status":
		statuses, err := m.provider.Status(ctx)
		if err != nil {
			return nil, wrapGoose(command, err)
		}
		lines := make([]string, 0, len(statuses))
		for _, st := range statuses {
			line := fmt.Sprintf("%-8s %s", st.State, path.Base(st.Source.Path))
			if !st.AppliedAt.IsZero() {
				line += " " + st.AppliedAt.UTC().Format(time.RFC3339)
			}
			lines = append(lines, line)
		}
		return lines, nil
	default:
		return nil, fmt.Errorf("unknown migrate command %q", command)
	}
}

// To moves the schema up or down until it sits at target (YYYYMMDDHHMMSS).
func (m *Migrator) To(ctx context.Context, target string) ([]string, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || version < 0 {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current < version:
		results, err = m.provider.UpTo(ctx, version)
	case current > version:
		results, err = m.provider.DownTo(ctx, version)
	}
	return describe(results), wrapGoose(fmt.Sprintf("to %d", version), err)
}

func describe(results []*goose.MigrationResult) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		state := "OK"
		if r.Error != nil {
			state = "FAILED"
		}
		lines = append(lines, fmt.Sprintf("%-6s %-4s %s (%s)", state, r.Direction, path.Base(r.Source.Path), r.Duration.Round(time.Millisecond)))
	}
	return lines
}

func wrapGoose(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}
