package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

var requiredMarkers = []string{"-- +goose Up", "-- +goose Down"}

// ValidateDir checks the migrations in dir. An empty dir checks the set
// embedded in the binary.
func ValidateDir(dir string) error {
	if dir == "" {
		return ValidateFS(embedded, embeddedDir)
	}
	return ValidateFS(os.DirFS(dir), ".")
}

// ValidateFS requires every .sql file under root to be named
// YYYYMMDDHHMMSS_name.sql with a unique version and to carry both goose
// section markers.
func ValidateFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read migrations %q: %w", root, err)
	}

	versions := make(map[string]string)
	var problems []error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		match := migrationName.FindStringSubmatch(name)
		if match == nil {
			problems = append(problems, fmt.Errorf("%s: name must look like YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if other, dup := versions[match[1]]; dup {
			problems = append(problems, fmt.Errorf("%s: version %s already used by %s", name, match[1], other))
			continue
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		for _, marker := range requiredMarkers {
			if !strings.Contains(string(body), marker) {
				problems = append(problems, fmt.Errorf("%s: missing %q", name, marker))
			}
		}
	}
	if len(versions) == 0 && len(problems) == 0 {
		return fmt.Errorf("no migrations in %q", root)
	}
	return errors.Join(problems...)
}
