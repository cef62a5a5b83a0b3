package roster

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/okian/vantage/internal/domain/model"
)

// readXLSX reads the first sheet of a workbook using the same header rules
// as ReadCSV.
func readXLSX(path string) ([]model.Student, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook does not contain any sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []model.Student{}, nil
	}

	cols := newColumns(rows[0])
	students := make([]model.Student, 0, len(rows)-1)
	for _, row := range rows[1:] {
		students = append(students, cols.student(row))
	}
	return students, nil
}
