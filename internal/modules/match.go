package modules

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/SAP-F-2025/placement-service/internal/models"
)

const MatchKey = "match"

// Token is a word chip the learner places
type Token struct {
	ID   string `json:"id"`
	Word string `json:"word"`
}

// WordMatch pairs word tokens with definitions; each token sits on at most
// one question and each question holds at most one token
type WordMatch struct {
	Assignments map[string]string `json:"matchAssignments"`
}

// MatchTokens builds one token per item from its first accepted answer,
// shuffled by seed so the bank order does not give answers away
func MatchTokens(items []models.Item, seed int64) []Token {
	tokens := make([]Token, 0, len(items))
	for i, item := range items {
		word := ""
		if len(item.Answers) > 0 {
			word = item.Answers[0]
		}
		tokens = append(tokens, Token{ID: fmt.Sprintf("token_%d", i), Word: word})
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(tokens), func(i, j int) { tokens[i], tokens[j] = tokens[j], tokens[i] })
	return tokens
}

func DecodeMatch(raw json.RawMessage) (WordMatch, error) {
	var m WordMatch
	if err := decodeAux(raw, &m); err != nil {
		return WordMatch{}, err
	}
	if m.Assignments == nil {
		m.Assignments = make(map[string]string)
	}
	return m, nil
}

// Assign places a token on a question, moving it if it was placed elsewhere
func (m *WordMatch) Assign(items []models.Item, questionID, tokenID string, answers map[string]string) error {
	if _, ok := findItem(items, questionID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	word, ok := tokenWord(items, tokenID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tokenID)
	}
	if m.Assignments[questionID] == tokenID {
		return nil
	}

	m.Unassign(questionID, answers)
	for qid, tid := range m.Assignments {
		if tid == tokenID {
			m.Unassign(qid, answers)
		}
	}

	m.Assignments[questionID] = tokenID
	answers[questionID] = word
	return nil
}

// Unassign returns the question's token to the word bank
func (m *WordMatch) Unassign(questionID string, answers map[string]string) {
	if _, ok := m.Assignments[questionID]; !ok {
		return
	}
	delete(m.Assignments, questionID)
	delete(answers, questionID)
}

func tokenWord(items []models.Item, tokenID string) (string, bool) {
	var i int
	if _, err := fmt.Sscanf(tokenID, "token_%d", &i); err != nil || i < 0 || i >= len(items) {
		return "", false
	}
	if len(items[i].Answers) == 0 {
		return "", false
	}
	return items[i].Answers[0], true
}

func AssignWord(questionID, tokenID string) AuxFunc {
	return func(raw json.RawMessage, items []models.Item, answers map[string]string) (json.RawMessage, error) {
		m, err := DecodeMatch(raw)
		if err != nil {
			return nil, err
		}
		if err := m.Assign(items, questionID, tokenID, answers); err != nil {
			return nil, err
		}
		return json.Marshal(m)
	}
}

func UnassignWord(questionID string) AuxFunc {
	return func(raw json.RawMessage, items []models.Item, answers map[string]string) (json.RawMessage, error) {
		m, err := DecodeMatch(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := findItem(items, questionID); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
		}
		m.Unassign(questionID, answers)
		return json.Marshal(m)
	}
}
