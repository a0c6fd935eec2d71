package bank

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/placement-service/internal/models"
)

func writeWorkbook(t *testing.T, path string, sheets map[string][][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatal(err)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
		for i, row := range rows {
			cellName, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(name, cellName, &row); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

var header = []interface{}{"set", "id", "question", "options", "answers", "audio", "table"}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speaking.xlsx")
	writeWorkbook(t, path, map[string][][]interface{}{
		"sets": {
			header,
			{"question_set_1", "", "", "", "", "", "Name=An | Job=Technician"},
			{"question_set_1", "S1", "What is your name?", "", "My name is An | I am An"},
			{"question_set_1", "S2", "What is your job?", "", "I am a technician"},
			{},
			{"question_set_2", "S3", "Where do you work?", "", "In a workshop", "hello.mp3"},
		},
	})

	b, err := LoadXLSX(path)
	if err != nil {
		t.Fatalf("LoadXLSX() error = %v", err)
	}
	if b.Module != "speaking" {
		t.Errorf("Module = %q", b.Module)
	}

	sets := b.Group("sets")
	if len(sets) != 2 {
		t.Fatalf("len(sets) = %d, want 2", len(sets))
	}

	wantTable := []models.TableCell{{Heading: "Name", Data: "An"}, {Heading: "Job", Data: "Technician"}}
	if !reflect.DeepEqual(sets[0].Table, wantTable) {
		t.Errorf("Table = %+v", sets[0].Table)
	}
	if got := sets[0].Questions[0].Answers; !reflect.DeepEqual(got, []string{"My name is An", "I am An"}) {
		t.Errorf("Answers = %v", got)
	}
	if sets[1].Audio != "hello.mp3" || sets[1].Questions[0].ID != "S3" {
		t.Errorf("unexpected second set: %+v", sets[1])
	}
}

func TestLoadXLSX_NonContiguousSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grammar.xlsx")
	writeWorkbook(t, path, map[string][][]interface{}{
		"pool": {
			header,
			{"a", "q1", "?", "A|B", "A"},
			{"b", "q2", "?", "A|B", "B"},
			{"a", "q3", "?", "A|B", "A"},
		},
	})

	if _, err := LoadXLSX(path); !errors.Is(err, ErrInvalidBank) {
		t.Errorf("LoadXLSX() error = %v, want ErrInvalidBank", err)
	}
}
