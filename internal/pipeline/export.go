package pipeline

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"oferta/internal/schema"
)

// ExportDatasetToXLSX writes the dataset as one sheet: canonical field
// names in the first row, one record per following row.
func ExportDatasetToXLSX(d schema.Dataset, outputPath string) error {
	f, err := datasetWorkbook(d)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func WriteDatasetXLSX(d schema.Dataset, w io.Writer) error {
	f, err := datasetWorkbook(d)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteTo(w)
	return err
}

func datasetWorkbook(d schema.Dataset) (*excelize.File, error) {
	if d.Schema == nil {
		return nil, errors.New("export: dataset has no schema")
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if d.Schema.Domain != "" {
		if err := f.SetSheetName(sheet, d.Schema.Domain); err != nil {
			_ = f.Close()
			return nil, err
		}
		sheet = d.Schema.Domain
	}

	fields := d.Schema.Fields()
	for i, field := range fields {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, field.Name)
	}

	for i, rec := range d.Records {
		r := i + 2
		for col, field := range fields {
			cell, _ := excelize.CoordinatesToCellName(col+1, r)
			var value any = rec.Get(field.Name)
			if field.Kind == schema.KindInteger {
				value = rec.Int(field.Name)
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}
	return f, nil
}
