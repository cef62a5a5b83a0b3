// Package roster holds the read-only student directory loaded at start-up.
package roster

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/vantage/internal/domain/model"
)

// Column headers recognized in roster files.
const (
	ColumnStudentID = "studentId"
	ColumnClass     = "class"
)

// Store exposes lookups over the student directory.
type Store interface {
	// All returns every student in source order.
	All(ctx context.Context) []model.Student
	// ByClass returns students whose class is one of classes, in source order.
	ByClass(ctx context.Context, classes []string) []model.Student
	// Count returns the number of students loaded.
	Count(ctx context.Context) int
}

// Directory is an immutable, ordered list of students. The zero value is an
// empty directory.
type Directory struct {
	students []model.Student
	source   string
	loadedAt time.Time
}

// New builds a Directory from an in-memory list. The slice is copied.
func New(students []model.Student) *Directory {
	cp := make([]model.Student, len(students))
	copy(cp, students)
	return &Directory{students: cp, loadedAt: time.Now()}
}

// Load reads the roster at path. A missing file produces an empty directory
// and no error. Files ending in .xlsx are read as spreadsheets; anything
// else is parsed as CSV.
func Load(ctx context.Context, path string) (*Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		students []model.Student
		err      error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		students, err = readXLSX(path)
	default:
		students, err = readCSVFile(path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Directory{source: path, loadedAt: time.Now()}, nil
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	return &Directory{students: students, source: path, loadedAt: time.Now()}, nil
}

// All implements Store. The returned slice is a copy.
func (d *Directory) All(_ context.Context) []model.Student {
	out := make([]model.Student, len(d.students))
	copy(out, d.students)
	return out
}

// ByClass implements Store. An empty classes list matches nothing; callers
// that want everything use All.
func (d *Directory) ByClass(_ context.Context, classes []string) []model.Student {
	allowed := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		allowed[c] = struct{}{}
	}
	out := make([]model.Student, 0)
	for _, s := range d.students {
		if _, ok := allowed[s.Class]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Count implements Store.
func (d *Directory) Count(_ context.Context) int { return len(d.students) }

// Source returns the path the directory was loaded from, if any.
func (d *Directory) Source() string { return d.source }

// LoadedAt returns when the directory was built.
func (d *Directory) LoadedAt() time.Time { return d.loadedAt }

// Classes returns the distinct classes in first-seen order.
func (d *Directory) Classes() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, s := range d.students {
		if _, ok := seen[s.Class]; ok {
			continue
		}
		seen[s.Class] = struct{}{}
		out = append(out, s.Class)
	}
	return out
}

func readCSVFile(path string) ([]model.Student, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(f)
}
