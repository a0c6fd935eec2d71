package modules

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/SAP-F-2025/placement-service/internal/models"
)

const ScrambleKey = "scramble"

// Scramble holds, per question, the token ids placed in the sentence in order
type Scramble struct {
	Order map[string][]string `json:"scrambleState"`
}

// ScrambleTokens lists the word chips of a scrambled sentence
func ScrambleTokens(item models.Item) []Token {
	tokens := make([]Token, 0, len(item.Options))
	for i, word := range item.Options {
		tokens = append(tokens, Token{ID: fmt.Sprintf("%s-%d", item.ID, i), Word: word})
	}
	return tokens
}

func DecodeScramble(raw json.RawMessage) (Scramble, error) {
	var s Scramble
	if err := decodeAux(raw, &s); err != nil {
		return Scramble{}, err
	}
	if s.Order == nil {
		s.Order = make(map[string][]string)
	}
	return s, nil
}

// Toggle moves a token between the word bank and the end of the sentence,
// then rewrites the learner's answer from the sentence
func (s *Scramble) Toggle(items []models.Item, questionID string, index int, answers map[string]string) error {
	item, ok := findItem(items, questionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	tokens := ScrambleTokens(item)
	if index < 0 || index >= len(tokens) {
		return fmt.Errorf("%w: %d", ErrUnknownToken, index)
	}
	tokenID := tokens[index].ID

	order := s.Order[questionID]
	placed := -1
	for i, id := range order {
		if id == tokenID {
			placed = i
			break
		}
	}
	if placed >= 0 {
		order = append(order[:placed:placed], order[placed+1:]...)
	} else {
		order = append(order, tokenID)
	}

	if len(order) == 0 {
		delete(s.Order, questionID)
	} else {
		s.Order[questionID] = order
	}

	words := make([]string, 0, len(order))
	for _, id := range order {
		for _, t := range tokens {
			if t.ID == id {
				words = append(words, t.Word)
				break
			}
		}
	}

	if sentence := FormatSentence(words); sentence != "" {
		answers[questionID] = sentence
	} else {
		delete(answers, questionID)
	}
	return nil
}

// FormatSentence joins words, capitalises the first letter and ends with a period
func FormatSentence(words []string) string {
	joined := strings.TrimSpace(strings.Join(words, " "))
	if joined == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(joined)
	sentence := string(unicode.ToUpper(first)) + joined[size:]
	if strings.HasSuffix(sentence, ".") {
		return sentence
	}
	return sentence + "."
}

func ToggleScrambleToken(questionID string, index int) AuxFunc {
	return func(raw json.RawMessage, items []models.Item, answers map[string]string) (json.RawMessage, error) {
		s, err := DecodeScramble(raw)
		if err != nil {
			return nil, err
		}
		if err := s.Toggle(items, questionID, index, answers); err != nil {
			return nil, err
		}
		return json.Marshal(s)
	}
}
