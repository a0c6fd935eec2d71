package scoring

import (
	"strings"

	"github.com/SAP-F-2025/placement-service/internal/models"
)

// Verdict is the outcome of one item
type Verdict struct {
	QuestionID string `json:"question_id"`
	Given      string `json:"given"`
	Answered   bool   `json:"answered"`
	Correct    bool   `json:"correct"`
	Marks      int    `json:"marks"`
}

// Result aggregates verdicts in item order
type Result struct {
	CorrectCount int       `json:"correct_count"`
	Total        int       `json:"total"`
	Marks        int       `json:"marks"`
	MaxMarks     int       `json:"max_marks"`
	Verdicts     []Verdict `json:"verdicts"`
}

// Score compares answers against the items. It is pure: the same inputs
// always give the same result, and a missing answer is simply incorrect.
func Score(items []models.Item, answers map[string]string) Result {
	result := Result{
		Total:    len(items),
		Verdicts: make([]Verdict, 0, len(items)),
	}

	for _, item := range items {
		weight := item.Marks
		if weight <= 0 {
			weight = 1
		}
		result.MaxMarks += weight

		given, answered := answers[item.ID]
		answered = answered && strings.TrimSpace(given) != ""

		v := Verdict{QuestionID: item.ID, Given: given, Answered: answered}
		if answered && Matches(item, given) {
			v.Correct = true
			v.Marks = weight
			result.CorrectCount++
			result.Marks += weight
		}
		result.Verdicts = append(result.Verdicts, v)
	}

	return result
}

// Matches reports whether a response equals any accepted answer under the
// item's normalisation rule
func Matches(item models.Item, given string) bool {
	normalize := NormalizerFor(item.Kind)
	got := normalize(given)
	for _, accepted := range item.Answers {
		if normalize(accepted) == got {
			return true
		}
	}
	return false
}

// Summary renders "id: answer (✓), id: N/A (✗)" for reporting
func (r Result) Summary() string {
	parts := make([]string, 0, len(r.Verdicts))
	for _, v := range r.Verdicts {
		given := v.Given
		if !v.Answered {
			given = "N/A"
		}
		mark := "✗"
		if v.Correct {
			mark = "✓"
		}
		parts = append(parts, v.QuestionID+": "+given+" ("+mark+")")
	}
	return strings.Join(parts, ", ")
}
