// Package features reads feature files of the form
//
//	/path/to/<objid>.<ext>,<label>,<f1>,<f2>,...
//
// into a label vector and a gonum matrix, caching the parsed result next to
// the source file.
package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"specimen-prep/internal/logger"

	"gonum.org/v1/gonum/mat"
)

const component = "Features"

var (
	ErrTooFewColumns = errors.New("feature line needs an object id, a label and at least one feature")
	ErrEmpty         = errors.New("feature file has no rows")
)

// Set is a parsed feature file. Row i of X belongs to ObjIDs[i] and Labels[i].
type Set struct {
	ObjIDs []string
	Labels []int
	X      *mat.Dense
}

// Len returns the number of rows.
func (s *Set) Len() int {
	return len(s.ObjIDs)
}

// Dims returns the number of feature columns.
func (s *Set) Dims() int {
	if s.X == nil {
		return 0
	}
	_, c := s.X.Dims()
	return c
}

// Options control loading.
type Options struct {
	// UseCache reads and writes the path+".cache" sidecar.
	UseCache bool
	Logger   logger.Logger
}

// CachePath returns the sidecar used for path.
func CachePath(path string) string {
	return path + ".cache"
}

// Load parses the feature file at path. With caching enabled a sidecar
// strictly newer than path is used instead of parsing, and a fresh parse
// rewrites the sidecar.
func Load(path string, opts Options) (*Set, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	srcInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat feature file: %w", err)
	}

	cachePath := CachePath(path)
	if opts.UseCache && isNewer(cachePath, srcInfo.ModTime()) {
		set, err := readCache(cachePath)
		if err == nil {
			log.Info(component, "using cached features", map[string]interface{}{
				"cache": cachePath,
				"rows":  set.Len(),
			})
			return set, nil
		}
		log.Warning(component, "ignoring unreadable feature cache", map[string]interface{}{
			"cache": cachePath,
			"error": err.Error(),
		})
	}

	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature file: %w", err)
	}
	defer f.Close()

	set, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Info(component, "features parsed", map[string]interface{}{
		"path":        path,
		"rows":        set.Len(),
		"dims":        set.Dims(),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if opts.UseCache {
		if err := writeCache(cachePath, set); err != nil {
			log.Error(component, "failed to write feature cache", err, map[string]interface{}{"cache": cachePath})
		}
	}

	return set, nil
}

// Parse reads feature lines from r. Every line must have the column count
// of the first one; empty lines are skipped.
func Parse(r io.Reader) (*Set, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	var (
		objIDs []string
		labels []int
		values []float64
		cols   int
	)

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read feature line: %w", err)
		}

		if cols == 0 {
			if len(record) <= 2 {
				return nil, fmt.Errorf("%w: first line has %d columns", ErrTooFewColumns, len(record))
			}
			cols = len(record)
		}

		line, _ := cr.FieldPos(0)

		label, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid label %q: %w", line, record[1], err)
		}

		for i, field := range record[2:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid feature %d %q: %w", line, i, field, err)
			}
			values = append(values, v)
		}

		objIDs = append(objIDs, objectID(record[0]))
		labels = append(labels, label)
	}

	if len(objIDs) == 0 {
		return nil, ErrEmpty
	}

	return &Set{
		ObjIDs: objIDs,
		Labels: labels,
		X:      mat.NewDense(len(objIDs), cols-2, values),
	}, nil
}

// objectID strips directories and the extension from an image path.
func objectID(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isNewer(path string, than time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.ModTime().After(than)
}
