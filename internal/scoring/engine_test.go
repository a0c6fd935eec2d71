package scoring

import (
	"reflect"
	"testing"

	"github.com/SAP-F-2025/placement-service/internal/models"
)

func item(id string, kind models.ItemKind, marks int, answers ...string) models.Item {
	return models.Item{
		Question: models.Question{ID: id, Answers: answers},
		Kind:     kind,
		Marks:    marks,
	}
}

func TestScore(t *testing.T) {
	items := []models.Item{
		item("q1", models.ItemExact, 1, "B"),
		item("q2", models.ItemExact, 1, "has been"),
		item("q3", models.ItemExact, 1, "C"),
	}

	tests := []struct {
		name    string
		answers map[string]string
		correct int
		marks   int
	}{
		{name: "all correct", answers: map[string]string{"q1": "B", "q2": "has been", "q3": "C"}, correct: 3, marks: 3},
		{name: "empty map", answers: map[string]string{}, correct: 0, marks: 0},
		{name: "nil map", answers: nil, correct: 0, marks: 0},
		{name: "exact is case sensitive", answers: map[string]string{"q1": "b", "q2": "Has been"}, correct: 0, marks: 0},
		{name: "partial", answers: map[string]string{"q1": "B", "q3": "A"}, correct: 1, marks: 1},
		{name: "unknown ids ignored", answers: map[string]string{"zz": "B"}, correct: 0, marks: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(items, tt.answers)
			if got.CorrectCount != tt.correct {
				t.Errorf("CorrectCount = %d, want %d", got.CorrectCount, tt.correct)
			}
			if got.Marks != tt.marks {
				t.Errorf("Marks = %d, want %d", got.Marks, tt.marks)
			}
			if got.Total != len(items) || got.MaxMarks != len(items) {
				t.Errorf("Total/MaxMarks = %d/%d, want %d", got.Total, got.MaxMarks, len(items))
			}
			if len(got.Verdicts) != len(items) {
				t.Errorf("len(Verdicts) = %d", len(got.Verdicts))
			}
		})
	}
}

func TestScore_Deterministic(t *testing.T) {
	items := []models.Item{
		item("w1", models.ItemToken, 1, "I am a student.", "I'm a student"),
		item("r1", models.ItemExact, 2, "A"),
	}
	answers := map[string]string{"w1": "im a student", "r1": "A"}

	first := Score(items, answers)
	second := Score(items, answers)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Score() not deterministic: %+v vs %+v", first, second)
	}
	if first.Marks != 3 || first.MaxMarks != 3 {
		t.Errorf("Marks = %d/%d, want 3/3", first.Marks, first.MaxMarks)
	}
}

func TestMatches_ItemKinds(t *testing.T) {
	tests := []struct {
		name  string
		item  models.Item
		given string
		want  bool
	}{
		{name: "sentence drops hyphen without a space", item: item("v1", models.ItemSentence, 1, "Spark plug"), given: "spark-plug!", want: false},
		{name: "sentence collapses spaces", item: item("v1", models.ItemSentence, 1, "Spark plug"), given: "  SPARK   plug. ", want: true},
		{name: "sentence keeps word boundaries", item: item("v1", models.ItemSentence, 1, "Spark plug"), given: "sparkplug", want: false},
		{name: "token ignores spacing", item: item("w1", models.ItemToken, 1, "The engine is running."), given: "the engineis running", want: true},
		{name: "token keeps accents", item: item("w1", models.ItemToken, 1, "Café—open"), given: "cafe open", want: false},
		{name: "token unicode letters kept", item: item("w1", models.ItemToken, 1, "Café—open"), given: "CAFÉ OPEN", want: true},
		{name: "token second accepted answer", item: item("w1", models.ItemToken, 1, "I am ready", "I'm ready"), given: "Im ready", want: true},
		{name: "spoken strips recogniser punctuation", item: item("s1", models.ItemSpoken, 3, "My name is An"), given: "my name is an.", want: true},
		{name: "spoken keeps apostrophes", item: item("s1", models.ItemSpoken, 3, "I'm fine"), given: "im fine", want: false},
		{name: "exact default", item: item("g1", "", 1, "B"), given: "B", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.item, tt.given); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.given, got, tt.want)
			}
		})
	}
}

func TestResult_Summary(t *testing.T) {
	items := []models.Item{
		item("q1", models.ItemExact, 1, "B"),
		item("q2", models.ItemExact, 1, "C"),
		item("q3", models.ItemExact, 1, "D"),
	}
	got := Score(items, map[string]string{"q1": "B", "q2": "A"}).Summary()
	want := "q1: B (✓), q2: A (✗), q3: N/A (✗)"
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestNormalizers(t *testing.T) {
	tests := []struct {
		name string
		fn   Normalizer
		in   string
		want string
	}{
		{"sentence", NormalizeSentence, " Hello,   World! ", "hello world"},
		{"token", NormalizeToken, "It's 5 o'clock.", "its5oclock"},
		{"spoken", NormalizeSpoken, "Yes, I   CAN!", "yes i can"},
		{"exact", NormalizeExact, " B ", " B "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
