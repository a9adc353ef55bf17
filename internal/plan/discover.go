package plan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover returns every *.yaml and *.yml file under dir, sorted by path.
// A non-empty filter is a glob matched against the file's base name.
func Discover(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
		}
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("plans directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
		default:
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, d.Name()); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// LoadDir discovers and loads every plan under dir. Plan names must be
// unique across files.
func LoadDir(dir, filter string) ([]*Plan, error) {
	files, err := Discover(dir, filter)
	if err != nil {
		return nil, err
	}

	plans := make([]*Plan, 0, len(files))
	byName := make(map[string]string)
	for _, f := range files {
		p, err := Load(f)
		if err != nil {
			return nil, err
		}
		if prev, ok := byName[p.Name]; ok {
			return nil, fmt.Errorf("%w: plan name %q used by %s and %s", ErrInvalidPlan, p.Name, prev, f)
		}
		byName[p.Name] = f
		plans = append(plans, p)
	}
	return plans, nil
}
