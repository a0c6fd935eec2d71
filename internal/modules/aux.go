package modules

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/placement-service/internal/models"
)

// Module errors
var (
	ErrUnknownSection  = errors.New("unknown audio section")
	ErrNoPlaysLeft     = errors.New("no plays left")
	ErrSectionLocked   = errors.New("section locked until the first recording has been played twice")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrUnknownToken    = errors.New("unknown token")
	ErrUnknownModule   = errors.New("unknown module")
)

// AuxFunc transforms one entry of a snapshot's auxState. It may also update
// the answer map, which is how word placement becomes a learner response.
type AuxFunc func(raw json.RawMessage, items []models.Item, answers map[string]string) (json.RawMessage, error)

func decodeAux(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode aux state: %w", err)
	}
	return nil
}

func findItem(items []models.Item, questionID string) (models.Item, bool) {
	for _, item := range items {
		if item.ID == questionID {
			return item, true
		}
	}
	return models.Item{}, false
}
