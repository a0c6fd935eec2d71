package reporting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
)

const ResultsSheet = "Results"

var resultHeader = []interface{}{
	"Date", "Test", "Name", "Student ID", "Program", "Correct", "Questions",
	"Marks", "Total Marks", "Time Spent", "Timed Out", "Answers", "Audio Usage",
}

// SpreadsheetSink appends one row per result to an .xlsx workbook
type SpreadsheetSink struct {
	path string
	mu   sync.Mutex
}

func NewSpreadsheetSink(path string) *SpreadsheetSink {
	return &SpreadsheetSink{path: path}
}

func (s *SpreadsheetSink) Name() string { return "spreadsheet" }

func (s *SpreadsheetSink) Send(ctx context.Context, p Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(ResultsSheet)
	if err != nil {
		return fmt.Errorf("failed to read results sheet: %w", err)
	}

	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}
	row := []interface{}{
		p.Date, p.TestType, p.Name, p.StudentID, p.Program, p.CorrectAnswers, p.TotalQuestions,
		p.Marks, p.TotalMarks, p.TimeSpent, p.IsTimeout, p.Answers, p.AudioUsage,
	}
	if err := f.SetSheetRow(ResultsSheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write result row: %w", err)
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// open loads the workbook, creating it and the results sheet when missing
func (s *SpreadsheetSink) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		f = excelize.NewFile()
		if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create results sheet: %w", err)
		}
		return f, s.writeHeader(f)
	case err != nil:
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	if idx, _ := f.GetSheetIndex(ResultsSheet); idx < 0 {
		if _, err := f.NewSheet(ResultsSheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create results sheet: %w", err)
		}
		return f, s.writeHeader(f)
	}
	return f, nil
}

func (s *SpreadsheetSink) writeHeader(f *excelize.File) error {
	header := append([]interface{}(nil), resultHeader...)
	if err := f.SetSheetRow(ResultsSheet, "A1", &header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}
