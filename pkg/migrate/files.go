package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	versionLayout = "20060102150405"
	annotationUp  = "-- +goose Up"
	annotationDn  = "-- +goose Down"
)

var (
	fileNameRe  = regexp.MustCompile(`^(\d{14})_([a-z0-9]+(?:_[a-z0-9]+)*)\.sql$`)
	nameCleanRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// fileVersion returns the timestamp prefix of a well-formed migration name.
func fileVersion(base string) (string, bool) {
	m := fileNameRe.FindStringSubmatch(base)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// slug turns a free-form description into the snake_case suffix of a file name.
func slug(name string) string {
	return strings.Trim(nameCleanRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes an empty goose migration named
// <YYYYMMDDHHMMSS>_<slug>.sql into dir and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	suffix := slug(name)
	if suffix == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	existing, err := scanDir(dir)
	if err != nil {
		return "", err
	}
	version := time.Now().UTC().Format(versionLayout)
	if prev, ok := existing[version]; ok {
		return "", fmt.Errorf("version %s already used by %s", version, prev)
	}

	var body bytes.Buffer
	fmt.Fprintf(&body, "%s\n-- +goose StatementBegin\n-- %s: forward statements\n-- +goose StatementEnd\n\n", annotationUp, suffix)
	fmt.Fprintf(&body, "%s\n-- +goose StatementBegin\n-- %s: rollback statements\n-- +goose StatementEnd\n", annotationDn, suffix)

	path := filepath.Join(dir, version+"_"+suffix+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(body.Bytes()); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// ValidateDir checks every .sql file in dir: timestamped snake_case name,
// unique version, and exactly one Up annotation followed by one Down.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	files, err := scanDir(dir)
	if err != nil {
		return err
	}
	for _, base := range files {
		if err := checkAnnotations(filepath.Join(dir, base)); err != nil {
			return err
		}
	}
	return nil
}

// scanDir maps migration versions to file names, rejecting malformed names
// and duplicate versions.
func scanDir(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	byVersion := make(map[string]string, len(entries))
	for _, entry := range entries {
		base := entry.Name()
		if entry.IsDir() || filepath.Ext(base) != ".sql" {
			continue
		}
		version, ok := fileVersion(base)
		if !ok {
			return nil, fmt.Errorf("migration %q must be named YYYYMMDDHHMMSS_snake_name.sql", base)
		}
		if prev, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("migrations %q and %q share version %s", prev, base, version)
		}
		byVersion[version] = base
	}
	return byVersion, nil
}

func checkAnnotations(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ups, downs := 0, 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case annotationUp:
			if downs > 0 {
				return fmt.Errorf("%s: Up section after Down", filepath.Base(path))
			}
			ups++
		case annotationDn:
			downs++
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if ups != 1 || downs != 1 {
		return fmt.Errorf("%s: want one Up and one Down section, found %d and %d", filepath.Base(path), ups, downs)
	}
	return nil
}
