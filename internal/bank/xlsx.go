package bank

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/placement-service/internal/models"
)

// Workbook layout: one sheet per group, first row is a header, then
//
//	A set | B id | C question | D options | E answers | F audio | G table
//
// List cells (options, answers) are separated by "|". Table cells are
// "Heading=Data" pairs separated by "|". Rows of one set must be contiguous.
const (
	colSet = iota
	colID
	colQuestion
	colOptions
	colAnswers
	colAudio
	colTable
)

const listSeparator = "|"

// LoadXLSX imports a bank from a workbook
func LoadXLSX(path string) (*Bank, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	groups := make(map[string][]models.QuestionSet)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to get rows of %s: %w", sheet, err)
		}

		sets, err := parseSheet(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %s: %v", ErrInvalidBank, sheet, err)
		}
		if len(sets) > 0 {
			groups[sheet] = sets
		}
	}

	module := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return New(module, groups), nil
}

func parseSheet(rows [][]string) ([]models.QuestionSet, error) {
	var sets []models.QuestionSet
	index := make(map[string]int)

	for i, row := range rows {
		// Skip header
		if i == 0 {
			continue
		}

		setID := cell(row, colSet)
		if setID == "" && cell(row, colID) == "" {
			continue
		}
		if setID == "" {
			return nil, fmt.Errorf("row %d: missing set", i+1)
		}

		pos, ok := index[setID]
		if !ok {
			sets = append(sets, models.QuestionSet{ID: setID})
			pos = len(sets) - 1
			index[setID] = pos
		} else if pos != len(sets)-1 {
			return nil, fmt.Errorf("row %d: rows of set %s are not contiguous", i+1, setID)
		}

		set := &sets[pos]
		if audio := cell(row, colAudio); audio != "" {
			set.Audio = audio
		}
		if table := cell(row, colTable); table != "" {
			set.Table = parseTable(table)
		}

		qid := cell(row, colID)
		if qid == "" {
			// set level row (audio or table only)
			continue
		}
		set.Questions = append(set.Questions, models.Question{
			ID:      qid,
			Prompt:  cell(row, colQuestion),
			Options: splitList(cell(row, colOptions)),
			Answers: splitList(cell(row, colAnswers)),
		})
	}

	return sets, nil
}

func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseTable(value string) []models.TableCell {
	var cells []models.TableCell
	for _, part := range splitList(value) {
		heading, data, _ := strings.Cut(part, "=")
		cells = append(cells, models.TableCell{
			Heading: strings.TrimSpace(heading),
			Data:    strings.TrimSpace(data),
		})
	}
	return cells
}
