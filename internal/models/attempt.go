package models

import (
	"encoding/json"
	"time"
)

type Phase string

const (
	PhaseNotStarted    Phase = "not_started"
	PhaseConnecting    Phase = "connecting"
	PhaseAwaitingStart Phase = "awaiting_start"
	PhaseInProgress    Phase = "in_progress"
	PhaseFinalizing    Phase = "finalizing"
	PhaseCompleted     Phase = "completed"
	PhaseShowCompleted Phase = "show_completed"
)

// Terminal reports whether no further attempt mutation is allowed.
func (p Phase) Terminal() bool {
	return p == PhaseFinalizing || p == PhaseCompleted || p == PhaseShowCompleted
}

type RecordKind string

const (
	KindAttempt    RecordKind = "attempt"
	KindCompletion RecordKind = "completion"
)

// Selection identifies which bank content an attempt was drawn from. Every field
// must re-resolve against the bank on resume.
type Selection struct {
	Program     string            `json:"program,omitempty"`
	SetKey      string            `json:"setKey,omitempty"`
	SetIDs      map[string]string `json:"setIds,omitempty"`
	QuestionIDs []string          `json:"questionIds,omitempty"`
	Order       []int             `json:"questionOrder,omitempty"`

	// Seed fixes option shuffling so a resumed page shows the same layout
	Seed int64 `json:"seed,omitempty"`
}

func (s Selection) IsZero() bool {
	return s.Program == "" && s.SetKey == "" && len(s.SetIDs) == 0 && len(s.QuestionIDs) == 0
}

// AttemptSnapshot is the resumable state written to cmi.suspend_data.
type AttemptSnapshot struct {
	Kind      RecordKind                 `json:"kind"`
	AttemptID string                     `json:"attemptId,omitempty"`
	StartTime int64                      `json:"startTime" validate:"gt=0"`
	Selection Selection                  `json:"selection"`
	Answers   map[string]string          `json:"answers"`
	AuxState  map[string]json.RawMessage `json:"auxState,omitempty"`
}

func (s *AttemptSnapshot) StartedAt() time.Time {
	return time.UnixMilli(s.StartTime)
}

// CompletionRecord replaces the snapshot once an attempt is finalized.
type CompletionRecord struct {
	Kind         RecordKind `json:"kind"`
	CompletedAt  string     `json:"completedAt"`
	TimeSpent    string     `json:"timeSpent"`
	Program      string     `json:"program,omitempty"`
	ProgramLabel string     `json:"programLabel,omitempty"`
	AuxSummary   string     `json:"auxSummary,omitempty"`
	Note         string     `json:"note,omitempty"`
}
