package geometry

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultGeometryDir is used when neither Params.Dir nor the environment
// override is set.
const DefaultGeometryDir = "data/geo"

// EnvGeometryDir names the environment variable that overrides the
// equilibrium data directory.
const EnvGeometryDir = "TOKSIM_GEOMETRY_DIR"

// ResolveDir picks the equilibrium data directory: explicit param, then
// environment, then the default location.
func ResolveDir(dir string) string {
	if dir != "" {
		return dir
	}
	if env := os.Getenv(EnvGeometryDir); env != "" {
		return env
	}
	return DefaultGeometryDir
}

// LoadEquilibriumFile parses a column-oriented equilibrium data file into a
// field-name -> profile mapping. The first non-comment line names the
// columns; remaining lines hold one value per column.
func LoadEquilibriumFile(path string) (map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geometry: open equilibrium file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var names []string
	data := make(map[string][]float64)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if names == nil {
			names = fields
			for _, name := range names {
				data[name] = nil
			}
			continue
		}
		if len(fields) != len(names) {
			return nil, fmt.Errorf("geometry: %s:%d: expected %d columns, got %d",
				filepath.Base(path), line, len(names), len(fields))
		}
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("geometry: %s:%d: bad value %q in column %s",
					filepath.Base(path), line, field, names[i])
			}
			data[names[i]] = append(data[names[i]], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("geometry: read equilibrium file: %w", err)
	}
	if names == nil {
		return nil, fmt.Errorf("geometry: %s: empty equilibrium file", filepath.Base(path))
	}
	return data, nil
}

// requireFields checks that every named profile is present with at least
// two points and that all profiles have equal length.
func requireFields(data map[string][]float64, names ...string) error {
	length := -1
	for _, name := range names {
		profile, ok := data[name]
		if !ok {
			return fmt.Errorf("geometry: equilibrium file missing field %q", name)
		}
		if len(profile) < 2 {
			return fmt.Errorf("geometry: field %q has %d points, need at least 2", name, len(profile))
		}
		if length == -1 {
			length = len(profile)
		} else if len(profile) != length {
			return fmt.Errorf("geometry: field %q has %d points, others have %d", name, len(profile), length)
		}
	}
	return nil
}
