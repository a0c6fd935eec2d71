package modules

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SAP-F-2025/placement-service/internal/bank"
	"github.com/SAP-F-2025/placement-service/internal/models"
)

// Definition describes one test module: how long it runs, how content is
// drawn, and how its items are scored
type Definition struct {
	Key             string
	Label           string
	Duration        time.Duration
	RequiresProgram bool
	Policy          bank.Policy
	Kind            models.ItemKind
	Marks           int

	// Aux names the auxState entry the page drives, if any
	Aux string

	// DefaultMax is shown on the completed view when the LMS holds no max score
	DefaultMax string

	AuxSummary func(aux map[string]json.RawMessage) string
}

// Items flattens a paper and applies the module's scoring rule
func (d Definition) Items(paper *bank.Paper) []models.Item {
	items := paper.Items()
	for i := range items {
		items[i].Kind = d.Kind
		items[i].Marks = d.Marks
	}
	return items
}

// Untimed reports whether the module has no countdown
func (d Definition) Untimed() bool {
	return d.Duration <= 0
}

// Tokens lists the word chips of a module's aux interaction, keyed by
// question id for scramble tasks and by MatchKey for the shared word bank
func (d Definition) Tokens(items []models.Item, seed int64) map[string][]Token {
	switch d.Aux {
	case MatchKey:
		return map[string][]Token{MatchKey: MatchTokens(items, seed)}
	case ScrambleKey:
		tokens := make(map[string][]Token)
		for _, item := range items {
			if len(item.Options) > 0 {
				tokens[item.ID] = ScrambleTokens(item)
			}
		}
		return tokens
	}
	return nil
}

// Summary renders the module's aux summary for reports
func (d Definition) Summary(aux map[string]json.RawMessage) string {
	if d.AuxSummary == nil {
		return ""
	}
	return d.AuxSummary(aux)
}

var registry = []Definition{
	{
		Key:        "grammar",
		Label:      "Grammar Test",
		Duration:   40 * time.Minute,
		Policy:     bank.PooledDraw{Group: "pool", Count: 50, ShuffleOptions: true},
		Kind:       models.ItemExact,
		Marks:      1,
		DefaultMax: "50",
	},
	{
		Key:        "reading",
		Label:      "Reading Test",
		Duration:   15 * time.Minute,
		Policy:     bank.RandomSet{Group: "sets", ShuffleQuestions: true},
		Kind:       models.ItemExact,
		Marks:      2,
		DefaultMax: "10",
	},
	{
		Key:             "listening",
		Label:           "Listening Test",
		Duration:        20 * time.Minute,
		RequiresProgram: true,
		Policy:          bank.ProgramPair{General: "General"},
		Kind:            models.ItemExact,
		Marks:           1,
		Aux:             AudioKey,
		DefaultMax:      "20",
		AuxSummary:      audioSummary,
	},
	{
		Key:             "vocabulary",
		Label:           "Vocabulary Test",
		Duration:        5 * time.Minute,
		RequiresProgram: true,
		Policy:          bank.ProgramSet{},
		Kind:            models.ItemSentence,
		Marks:           1,
		Aux:             MatchKey,
		DefaultMax:      "5",
	},
	{
		Key:             "writing",
		Label:           "Writing Test",
		Duration:        25 * time.Minute,
		RequiresProgram: true,
		Policy:          bank.ProgramFixed{Tasks: []string{"question_1", "question_2"}, ExampleFirst: true},
		Kind:            models.ItemToken,
		Marks:           1,
		Aux:             ScrambleKey,
	},
	{
		Key:    "speaking",
		Label:  "Speaking Test",
		Policy: bank.RandomSet{Group: "sets"},
		Kind:   models.ItemSpoken,
		Marks:  3,
	},
}

// All returns the module catalogue in page order
func All() []Definition {
	return append([]Definition(nil), registry...)
}

// Lookup finds a module by key
func Lookup(key string) (Definition, error) {
	for _, d := range registry {
		if d.Key == key {
			return d, nil
		}
	}
	return Definition{}, fmt.Errorf("%w: %q", ErrUnknownModule, key)
}
