package models

type ItemKind string

const (
	ItemExact    ItemKind = "exact"    // multiple choice, compared verbatim
	ItemSentence ItemKind = "sentence" // vocabulary, punctuation insensitive
	ItemToken    ItemKind = "token"    // writing, whitespace and punctuation insensitive
	ItemSpoken   ItemKind = "spoken"   // speech transcripts
)

// Question is read-only bank content. The core never mutates it.
type Question struct {
	ID     string `json:"id" validate:"required"`
	Prompt string `json:"question"`

	// Options are choices, or the word tokens of a scrambled sentence
	Options []string `json:"options,omitempty"`
	Answers []string `json:"answers" validate:"required,min=1"`
}

// TableCell is one column of a context table shown above a question set
type TableCell struct {
	Heading string `json:"heading"`
	Data    string `json:"data"`
}

// QuestionSet is one named set inside a bank group.
type QuestionSet struct {
	ID        string      `json:"id" validate:"required"`
	Audio     string      `json:"audio,omitempty"`
	Table     []TableCell `json:"table,omitempty"`
	Questions []Question  `json:"questions" validate:"dive"`
}

// Item is a resolved question ready to be presented and scored.
type Item struct {
	Question
	Section string   `json:"section,omitempty"`
	Kind    ItemKind `json:"kind"`
	Marks   int      `json:"marks"`
}

type Program struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var Programs = []Program{
	{Key: "AT", Label: "Automobile Technology"},
	{Key: "CT", Label: "Construction Technology"},
	{Key: "ET", Label: "Electrical Technology"},
	{Key: "FT", Label: "Food Technology"},
	{Key: "ICT", Label: "Information and Communication Technology"},
	{Key: "MT", Label: "Mechanical Technology"},
}

// ProgramLabel renders "ICT - Information and Communication Technology".
func ProgramLabel(key string) string {
	if key == "" {
		return "Not selected"
	}
	for _, p := range Programs {
		if p.Key == key {
			return p.Key + " - " + p.Label
		}
	}
	return key + " - " + key
}

func IsKnownProgram(key string) bool {
	for _, p := range Programs {
		if p.Key == key {
			return true
		}
	}
	return false
}
