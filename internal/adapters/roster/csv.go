package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/vantage/internal/domain/model"
)

const utf8BOM = "\ufeff"

// ReadCSV parses a roster with a header row. Extra columns are ignored and
// rows may be shorter than the header; missing cells read as empty.
func ReadCSV(r io.Reader) ([]model.Student, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []model.Student{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := newColumns(header)

	students := make([]model.Student, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(students)+2, err)
		}
		students = append(students, cols.student(row))
	}
	return students, nil
}

// columns maps header names to positions; -1 means absent.
type columns struct {
	id    int
	class int
}

func newColumns(header []string) columns {
	c := columns{id: -1, class: -1}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		switch h {
		case ColumnStudentID:
			if c.id < 0 {
				c.id = i
			}
		case ColumnClass:
			if c.class < 0 {
				c.class = i
			}
		}
	}
	return c
}

func (c columns) student(row []string) model.Student {
	return model.Student{
		StudentID: model.ParseStudentID(cell(row, c.id)),
		Class:     cell(row, c.class),
	}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
