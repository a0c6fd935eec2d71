package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/SAP-F-2025/placement-service/internal/models"
	"github.com/SAP-F-2025/placement-service/internal/validator"
)

// DefaultLimit keeps suspend data under the SCORM 1.2 4096 character cap
const DefaultLimit = 4000

var (
	ErrNoSnapshot        = errors.New("no resumable snapshot")
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	ErrWriteFailed       = errors.New("suspend data write failed")
)

// Slot is the LMS access the store needs. *lms.Session satisfies it.
type Slot interface {
	IsActive() bool
	Read(ctx context.Context, key string) string
	Write(ctx context.Context, key, value string) bool
	Commit(ctx context.Context) bool
}

// Store converts attempt snapshots and completion records to and from the
// suspend data slot. It holds no state of its own.
type Store struct {
	slot      Slot
	validator *validator.Validator
	logger    *slog.Logger
	limit     int
}

func NewStore(slot Slot, v *validator.Validator, logger *slog.Logger, limit int) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if v == nil {
		v = validator.New()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		slot:      slot,
		validator: v,
		logger:    logger,
		limit:     limit,
	}
}

// envelope reads only the discriminating fields of a stored blob
type envelope struct {
	Kind        models.RecordKind `json:"kind"`
	StartTime   int64             `json:"startTime"`
	CompletedAt string            `json:"completedAt"`
}

// Save writes the snapshot and commits. Without an active LMS it does nothing.
func (s *Store) Save(ctx context.Context, snapshot *models.AttemptSnapshot) error {
	if !s.slot.IsActive() {
		return nil
	}

	out := *snapshot
	out.Kind = models.KindAttempt
	if out.Answers == nil {
		out.Answers = map[string]string{}
	}

	data, err := json.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if utf8.RuneCount(data) > s.limit && len(out.AuxState) > 0 {
		s.logger.Warn("Snapshot exceeds suspend data limit, dropping aux state",
			"size", utf8.RuneCount(data),
			"limit", s.limit)
		out.AuxState = nil
		if data, err = json.Marshal(&out); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
	}
	if utf8.RuneCount(data) > s.limit {
		s.logger.Warn("Snapshot still exceeds suspend data limit", "size", utf8.RuneCount(data), "limit", s.limit)
	}

	if !s.slot.Write(ctx, models.CMISuspendData, string(data)) {
		return ErrWriteFailed
	}
	s.slot.Commit(ctx)
	return nil
}

// Load returns the stored attempt. A missing blob, a completion record, and
// an unusable blob all mean there is nothing to resume.
func (s *Store) Load(ctx context.Context) (*models.AttemptSnapshot, error) {
	raw := s.slot.Read(ctx, models.CMISuspendData)
	if raw == "" {
		return nil, ErrNoSnapshot
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		s.logger.Warn("Failed to parse suspend data", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if env.Kind == models.KindCompletion || (env.Kind == "" && env.CompletedAt != "" && env.StartTime == 0) {
		return nil, ErrNoSnapshot
	}

	var snapshot models.AttemptSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		s.logger.Warn("Failed to decode snapshot", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	if err := s.validator.Validate(&snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if snapshot.Selection.IsZero() {
		return nil, fmt.Errorf("%w: empty selection", ErrMalformedSnapshot)
	}

	snapshot.Kind = models.KindAttempt
	if snapshot.Answers == nil {
		snapshot.Answers = map[string]string{}
	}
	return &snapshot, nil
}

// Clear empties the slot so stale state cannot be resumed
func (s *Store) Clear(ctx context.Context) error {
	if !s.slot.IsActive() {
		return nil
	}
	if !s.slot.Write(ctx, models.CMISuspendData, "") {
		return ErrWriteFailed
	}
	s.slot.Commit(ctx)
	return nil
}

// WriteCompletion replaces the slot content with the terminal record. The
// caller commits as part of its finalize sequence.
func (s *Store) WriteCompletion(ctx context.Context, record *models.CompletionRecord) error {
	if !s.slot.IsActive() {
		return nil
	}

	out := *record
	out.Kind = models.KindCompletion

	data, err := json.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to encode completion record: %w", err)
	}
	if utf8.RuneCount(data) > s.limit {
		s.logger.Warn("Completion record exceeds suspend data limit, writing minimal record",
			"size", utf8.RuneCount(data),
			"limit", s.limit)
		minimal := models.CompletionRecord{
			Kind:        models.KindCompletion,
			CompletedAt: out.CompletedAt,
			TimeSpent:   out.TimeSpent,
		}
		if data, err = json.Marshal(&minimal); err != nil {
			return fmt.Errorf("failed to encode completion record: %w", err)
		}
	}

	if !s.slot.Write(ctx, models.CMISuspendData, string(data)) {
		return ErrWriteFailed
	}
	return nil
}

// LoadCompletion reads the terminal record written by a finished attempt
func (s *Store) LoadCompletion(ctx context.Context) (*models.CompletionRecord, error) {
	raw := s.slot.Read(ctx, models.CMISuspendData)
	if raw == "" {
		return nil, ErrNoSnapshot
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if env.Kind != models.KindCompletion && env.CompletedAt == "" {
		return nil, ErrNoSnapshot
	}

	var record models.CompletionRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	record.Kind = models.KindCompletion
	return &record, nil
}
