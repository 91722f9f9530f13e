package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RequiredColumns is the documented column order of an import file.
var RequiredColumns = []string{
	"Loan ID",
	"Customer Email ID",
	"Loan Start Date",
	"Customer Phone number",
	"Loan End Date",
	"Customer Location (City/Town)",
	"Name of the Customer",
}

var errNoPreview = errors.New("preview not available for this file")

type Preview struct {
	Columns []string
	Records int
	// Missing lists required columns absent from the header row. It is
	// informational; the remote import decides what to reject.
	Missing []string
}

func BuildPreview(file File) (Preview, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".csv":
		rows, err = csvRows(file.Data)
	case ".xlsx":
		rows, err = xlsxRows(file.Data)
	default:
		return Preview{}, errNoPreview
	}
	if err != nil {
		return Preview{}, err
	}
	if len(rows) == 0 {
		return Preview{Missing: RequiredColumns}, nil
	}

	header := make([]string, 0, len(rows[0]))
	present := make(map[string]struct{}, len(rows[0]))
	for _, cell := range rows[0] {
		cell = strings.TrimSpace(cell)
		header = append(header, cell)
		present[strings.ToLower(cell)] = struct{}{}
	}
	preview := Preview{Columns: header}
	for _, row := range rows[1:] {
		if !blankRow(row) {
			preview.Records++
		}
	}
	for _, column := range RequiredColumns {
		if _, ok := present[strings.ToLower(column)]; !ok {
			preview.Missing = append(preview.Missing, column)
		}
	}
	return preview, nil
}

func csvRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func xlsxRows(data []byte) ([][]string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
