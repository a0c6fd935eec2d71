package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/placement-service/internal/bank"
	"github.com/SAP-F-2025/placement-service/internal/lms"
	"github.com/SAP-F-2025/placement-service/internal/models"
	"github.com/SAP-F-2025/placement-service/internal/modules"
	"github.com/SAP-F-2025/placement-service/internal/progress"
	"github.com/SAP-F-2025/placement-service/internal/reporting"
	"github.com/SAP-F-2025/placement-service/internal/scoring"
	"github.com/SAP-F-2025/placement-service/internal/timer"
	"github.com/SAP-F-2025/placement-service/internal/validator"
)

// Attempt errors
var (
	ErrNotInProgress   = errors.New("attempt is not in progress")
	ErrAlreadyStarted  = errors.New("attempt already started")
	ErrNotBooted       = errors.New("attempt has not been booted")
	ErrProgramRequired = errors.New("a programme must be selected")
	ErrUnsupportedAux  = errors.New("module has no such interaction")
	ErrUnloaded        = errors.New("page has been unloaded")
)

// Outcome is what the learner sees once an attempt is final
type Outcome struct {
	Result       scoring.Result `json:"result"`
	Raw          int            `json:"raw"`
	Max          int            `json:"max"`
	TimeSpent    string         `json:"time_spent"`
	CompletedAt  string         `json:"completed_at"`
	IsTimeout    bool           `json:"is_timeout"`
	Program      string         `json:"program,omitempty"`
	ProgramLabel string         `json:"program_label,omitempty"`
	AuxSummary   string         `json:"aux_summary,omitempty"`
}

// Prior is the read-only result of an attempt finished in an earlier session
type Prior struct {
	LessonStatus models.LessonStatus      `json:"lesson_status"`
	ScoreRaw     string                   `json:"score_raw"`
	ScoreMax     string                   `json:"score_max"`
	TimeSpent    string                   `json:"time_spent"`
	Record       *models.CompletionRecord `json:"record,omitempty"`
}

// Controller drives one attempt of one module through connect, resume or
// fresh start, answering, and a single finalize. Each page load gets its own.
type Controller struct {
	def      modules.Definition
	bank     *bank.Bank
	session  *lms.Session
	store    *progress.Store
	reporter reporting.Reporter
	logger   *slog.Logger

	now          func() time.Time
	rng          *rand.Rand
	suspendLimit int
	clockOptions []timer.Option

	mu        sync.Mutex
	phase     models.Phase
	snapshot  *models.AttemptSnapshot
	paper     *bank.Paper
	items     []models.Item
	clock     *timer.Clock
	finalized bool
	unloaded  bool
	outcome   *Outcome
	prior     *Prior
	notice    string
}

type Option func(*Controller)

// WithNow replaces the wall clock for the attempt and its countdown
func WithNow(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithRand fixes the random source used to draw content
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) { c.rng = rng }
}

// WithSuspendLimit overrides the suspend data size threshold
func WithSuspendLimit(limit int) Option {
	return func(c *Controller) { c.suspendLimit = limit }
}

// WithClockOptions passes options to every countdown the controller starts
func WithClockOptions(opts ...timer.Option) Option {
	return func(c *Controller) { c.clockOptions = append(c.clockOptions, opts...) }
}

func New(def modules.Definition, b *bank.Bank, session *lms.Session, reporter reporting.Reporter, logger *slog.Logger, v *validator.Validator, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if v == nil {
		v = validator.New()
	}
	if reporter == nil {
		reporter = reporting.Discard{}
	}
	logger = logger.With("module", def.Key)

	c := &Controller{
		def:      def,
		bank:     b,
		session:  session,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
		phase:    models.PhaseNotStarted,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.store = progress.NewStore(session, v, logger, c.suspendLimit)
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(c.now().UnixNano()))
	}
	return c
}

// ===== LIFECYCLE =====

// Boot connects to the LMS and decides between the completed view, a resume,
// and a fresh start. Calling it again returns the current view.
func (c *Controller) Boot(ctx context.Context) (*View, error) {
	c.mu.Lock()
	if c.phase != models.PhaseNotStarted {
		defer c.mu.Unlock()
		return c.viewLocked(), nil
	}

	c.phase = models.PhaseConnecting
	result := c.session.Connect(ctx)
	c.logger.Info("Booting attempt", "lms", string(result))

	if result == lms.Connected {
		if status := c.session.LessonStatus(ctx); status.IsTerminal() {
			c.showCompletedLocked(ctx, status)
			defer c.mu.Unlock()
			return c.viewLocked(), nil
		}

		if resumed, expired := c.resumeLocked(ctx); resumed {
			if expired {
				c.finalizeLocked(ctx, true)
				defer c.mu.Unlock()
				return c.viewLocked(), nil
			}
			c.mu.Unlock()
			c.startClock()
			return c.View(), nil
		}
	}

	c.phase = models.PhaseAwaitingStart
	if c.def.RequiresProgram {
		defer c.mu.Unlock()
		return c.viewLocked(), nil
	}

	err := c.startFreshLocked(ctx, "")
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c.startClock()
	return c.View(), nil
}

// Start begins a fresh attempt once the learner has picked a programme
func (c *Controller) Start(ctx context.Context, program string) (*View, error) {
	c.mu.Lock()
	switch c.phase {
	case models.PhaseAwaitingStart:
	case models.PhaseNotStarted, models.PhaseConnecting:
		c.mu.Unlock()
		return nil, ErrNotBooted
	case models.PhaseInProgress:
		c.mu.Unlock()
		return nil, ErrAlreadyStarted
	default:
		c.mu.Unlock()
		return nil, ErrNotInProgress
	}
	if c.unloaded {
		c.mu.Unlock()
		return nil, ErrUnloaded
	}
	if c.def.RequiresProgram && program == "" {
		c.mu.Unlock()
		return nil, ErrProgramRequired
	}

	err := c.startFreshLocked(ctx, program)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c.startClock()
	return c.View(), nil
}

// resumeLocked restores a stored attempt. It reports whether an attempt was
// restored and whether its time had already run out.
func (c *Controller) resumeLocked(ctx context.Context) (resumed, expired bool) {
	snapshot, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, progress.ErrMalformedSnapshot) {
			c.logger.Warn("Ignoring unusable suspend data", "error", err)
			c.notice = "stored progress could not be read; a new attempt was started"
		}
		return false, false
	}

	paper, err := c.def.Policy.Resolve(c.bank, snapshot.Selection)
	if err != nil {
		c.logger.Warn("Stored selection no longer resolves, starting fresh",
			"attempt_id", snapshot.AttemptID,
			"error", err)
		c.notice = "the question bank changed; a new attempt was started"
		return false, false
	}

	c.snapshot = snapshot
	c.paper = paper
	c.items = c.def.Items(paper)
	c.phase = models.PhaseInProgress

	elapsed := c.now().Sub(snapshot.StartedAt())
	expired = !c.def.Untimed() && elapsed >= c.def.Duration

	c.logger.Info("Attempt resumed",
		"attempt_id", snapshot.AttemptID,
		"elapsed", elapsed,
		"answers", len(snapshot.Answers),
		"expired", expired)
	return true, expired
}

func (c *Controller) startFreshLocked(ctx context.Context, program string) error {
	sel, err := c.def.Policy.Draw(c.bank, program, c.rng)
	if err != nil {
		return fmt.Errorf("failed to draw questions: %w", err)
	}
	paper, err := c.def.Policy.Resolve(c.bank, sel)
	if err != nil {
		return fmt.Errorf("failed to resolve questions: %w", err)
	}

	c.snapshot = &models.AttemptSnapshot{
		Kind:      models.KindAttempt,
		AttemptID: uuid.NewString(),
		StartTime: c.now().UnixMilli(),
		Selection: sel,
		Answers:   map[string]string{},
		AuxState:  map[string]json.RawMessage{},
	}
	c.paper = paper
	c.items = c.def.Items(paper)
	c.phase = models.PhaseInProgress

	if c.session.IsActive() {
		c.session.Write(ctx, models.CMILessonStatus, string(models.LessonIncomplete))
	}
	c.saveLocked(ctx)

	c.logger.Info("Fresh attempt started",
		"attempt_id", c.snapshot.AttemptID,
		"program", program,
		"items", len(c.items),
		"persistent", c.session.IsActive())
	return nil
}

// startClock runs outside the lock: an already expired countdown calls back
// into the controller from Start.
func (c *Controller) startClock() {
	c.mu.Lock()
	if c.phase != models.PhaseInProgress || c.clock != nil {
		c.mu.Unlock()
		return
	}
	opts := append([]timer.Option{timer.WithNow(c.now)}, c.clockOptions...)
	clock := timer.New(c.def.Duration, opts...)
	c.clock = clock
	anchor := c.snapshot.StartedAt()
	c.mu.Unlock()

	clock.Start(anchor, c.expire)
}

func (c *Controller) showCompletedLocked(ctx context.Context, status models.LessonStatus) {
	prior := &Prior{
		LessonStatus: status,
		ScoreRaw:     c.session.Read(ctx, models.CMIScoreRaw),
		ScoreMax:     c.session.Read(ctx, models.CMIScoreMax),
		TimeSpent:    "Unavailable",
	}
	if prior.ScoreMax == "" {
		prior.ScoreMax = c.def.DefaultMax
	}
	if record, err := c.store.LoadCompletion(ctx); err == nil {
		prior.Record = record
		if record.TimeSpent != "" {
			prior.TimeSpent = record.TimeSpent
		}
	}

	c.prior = prior
	c.phase = models.PhaseShowCompleted
	c.logger.Info("Module already completed", "lesson_status", string(status))
}

// ===== ANSWERS =====

// RecordAnswer stores a response and persists the attempt
func (c *Controller) RecordAnswer(ctx context.Context, questionID, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutableLocked(); err != nil {
		return err
	}
	if !c.hasItemLocked(questionID) {
		return fmt.Errorf("%w: %s", modules.ErrUnknownQuestion, questionID)
	}

	c.snapshot.Answers[questionID] = value
	c.saveLocked(ctx)
	return nil
}

// ClearAnswer removes a response
func (c *Controller) ClearAnswer(ctx context.Context, questionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutableLocked(); err != nil {
		return err
	}
	if !c.hasItemLocked(questionID) {
		return fmt.Errorf("%w: %s", modules.ErrUnknownQuestion, questionID)
	}

	delete(c.snapshot.Answers, questionID)
	c.saveLocked(ctx)
	return nil
}

// UpdateAux applies a module interaction to the attempt. The function sees a
// copy of the answers; nothing changes unless it succeeds.
func (c *Controller) UpdateAux(ctx context.Context, key string, fn modules.AuxFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mutableLocked(); err != nil {
		return err
	}
	if key == "" || key != c.def.Aux {
		return fmt.Errorf("%w: %s has no %q state", ErrUnsupportedAux, c.def.Key, key)
	}

	answers := make(map[string]string, len(c.snapshot.Answers))
	for k, v := range c.snapshot.Answers {
		answers[k] = v
	}

	raw, err := fn(c.snapshot.AuxState[key], c.items, answers)
	if err != nil {
		return err
	}

	if c.snapshot.AuxState == nil {
		c.snapshot.AuxState = map[string]json.RawMessage{}
	}
	c.snapshot.AuxState[key] = raw
	c.snapshot.Answers = answers
	c.saveLocked(ctx)
	return nil
}

func (c *Controller) mutableLocked() error {
	if c.unloaded {
		return ErrUnloaded
	}
	if c.phase != models.PhaseInProgress || c.finalized {
		return ErrNotInProgress
	}
	return nil
}

func (c *Controller) hasItemLocked(questionID string) bool {
	for _, item := range c.items {
		if item.ID == questionID {
			return true
		}
	}
	return false
}

// saveLocked writes through to the LMS. Failures leave the attempt running
// without persistence.
func (c *Controller) saveLocked(ctx context.Context) {
	if err := c.store.Save(ctx, c.snapshot); err != nil {
		c.logger.Warn("Failed to save attempt",
			"attempt_id", c.snapshot.AttemptID,
			"error", err)
	}
}

// ===== FINALIZE =====

// Submit ends the attempt on learner request. A repeated submit returns the
// existing outcome.
func (c *Controller) Submit(ctx context.Context) (*Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalized {
		return c.outcome, nil
	}
	if c.unloaded {
		return nil, ErrUnloaded
	}
	if c.phase != models.PhaseInProgress {
		return nil, ErrNotInProgress
	}

	c.finalizeLocked(ctx, false)
	return c.outcome, nil
}

// expire is the countdown callback
func (c *Controller) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalized || c.unloaded || c.phase != models.PhaseInProgress {
		return
	}
	c.logger.Info("Attempt time expired", "attempt_id", c.snapshot.AttemptID)
	c.finalizeLocked(context.Background(), true)
}

func (c *Controller) finalizeLocked(ctx context.Context, isTimeout bool) {
	if c.finalized {
		return
	}
	c.finalized = true
	c.phase = models.PhaseFinalizing

	if c.clock != nil {
		c.clock.Stop()
	}

	result := scoring.Score(c.items, c.snapshot.Answers)

	now := c.now()
	spent := now.Sub(c.snapshot.StartedAt())
	if spent < 0 {
		spent = 0
	}
	if !c.def.Untimed() && spent > c.def.Duration {
		spent = c.def.Duration
	}

	program := c.snapshot.Selection.Program
	outcome := &Outcome{
		Result:      result,
		Raw:         result.Marks,
		Max:         result.MaxMarks,
		TimeSpent:   timer.Format(spent),
		CompletedAt: now.UTC().Format(time.RFC3339),
		IsTimeout:   isTimeout,
		Program:     program,
		AuxSummary:  c.def.Summary(c.snapshot.AuxState),
	}
	if program != "" {
		outcome.ProgramLabel = models.ProgramLabel(program)
	}

	if c.session.IsActive() {
		c.session.Write(ctx, models.CMIScoreRaw, strconv.Itoa(outcome.Raw))
		c.session.Write(ctx, models.CMIScoreMin, "0")
		c.session.Write(ctx, models.CMIScoreMax, strconv.Itoa(outcome.Max))
		c.session.Write(ctx, models.CMILessonStatus, string(models.LessonCompleted))

		record := &models.CompletionRecord{
			CompletedAt:  outcome.CompletedAt,
			TimeSpent:    outcome.TimeSpent,
			Program:      program,
			ProgramLabel: outcome.ProgramLabel,
			AuxSummary:   outcome.AuxSummary,
		}
		if err := c.store.WriteCompletion(ctx, record); err != nil {
			c.logger.Warn("Failed to write completion record", "error", err)
		}
		c.session.Commit(ctx)
	}

	c.outcome = outcome
	c.phase = models.PhaseCompleted

	name, studentID := c.session.StudentIdentity(ctx)
	c.reporter.Dispatch(reporting.Payload{
		TestType:       c.def.Label,
		Name:           name,
		StudentID:      studentID,
		Program:        outcome.ProgramLabel,
		Score:          outcome.Raw,
		CorrectAnswers: result.CorrectCount,
		Marks:          result.Marks,
		TotalQuestions: result.Total,
		TotalMarks:     result.MaxMarks,
		TimeSpent:      outcome.TimeSpent,
		Date:           outcome.CompletedAt,
		Answers:        result.Summary(),
		AudioUsage:     outcome.AuxSummary,
		IsTimeout:      isTimeout,
	})

	c.logger.Info("Attempt finalized",
		"attempt_id", c.snapshot.AttemptID,
		"correct", result.CorrectCount,
		"total", result.Total,
		"marks", result.Marks,
		"max_marks", result.MaxMarks,
		"time_spent", outcome.TimeSpent,
		"timeout", isTimeout)
}

// ===== EXIT =====

// Unload handles a page exit event. The countdown stops and the LMS session
// terminates once, however many exit events arrive.
func (c *Controller) Unload(ctx context.Context, event string) {
	c.mu.Lock()
	first := !c.unloaded
	c.unloaded = true
	clock := c.clock
	c.mu.Unlock()

	if clock != nil {
		clock.Stop()
	}
	if first {
		c.logger.Info("Page unloading", "event", event)
	}
	c.session.Terminate(ctx)
}

// ===== STATE =====

func (c *Controller) Phase() models.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Remaining is the countdown left, or the full duration before a start
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clock == nil {
		if c.finalized {
			return 0
		}
		return c.def.Duration
	}
	return c.clock.Remaining()
}

func (c *Controller) Outcome() *Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

func (c *Controller) Module() modules.Definition {
	return c.def
}

func (c *Controller) Unloaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unloaded
}
