package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/placement-service/internal/bank"
	"github.com/SAP-F-2025/placement-service/internal/lms"
	"github.com/SAP-F-2025/placement-service/internal/models"
	"github.com/SAP-F-2025/placement-service/internal/modules"
	"github.com/SAP-F-2025/placement-service/internal/reporting"
	"github.com/SAP-F-2025/placement-service/internal/timer"
)

// ===== FAKES =====

// countingConnector wraps the in-memory runtime and counts every call
type countingConnector struct {
	*lms.MemoryConnector
	available bool

	mu     sync.Mutex
	calls  map[string]int
	writes map[string]int
}

func newCountingConnector(seed map[string]string) *countingConnector {
	return &countingConnector{
		MemoryConnector: lms.NewMemoryConnector(seed),
		available:       true,
		calls:           map[string]int{},
		writes:          map[string]int{},
	}
}

func (c *countingConnector) count(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[op]++
}

func (c *countingConnector) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

func (c *countingConnector) Writes(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[key]
}

func (c *countingConnector) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *countingConnector) Available() bool { return c.available }

func (c *countingConnector) Initialize(ctx context.Context) error {
	c.count("initialize")
	return c.MemoryConnector.Initialize(ctx)
}

func (c *countingConnector) Get(ctx context.Context, key string) (string, error) {
	c.count("get")
	return c.MemoryConnector.Get(ctx, key)
}

func (c *countingConnector) Set(ctx context.Context, key, value string) error {
	c.count("set")
	c.mu.Lock()
	c.writes[key]++
	c.mu.Unlock()
	return c.MemoryConnector.Set(ctx, key, value)
}

func (c *countingConnector) Commit(ctx context.Context) error {
	c.count("commit")
	return c.MemoryConnector.Commit(ctx)
}

func (c *countingConnector) Terminate(ctx context.Context) error {
	c.count("terminate")
	return c.MemoryConnector.Terminate(ctx)
}

type recordingReporter struct {
	mu       sync.Mutex
	payloads []reporting.Payload
}

func (r *recordingReporter) Dispatch(p reporting.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
}

func (r *recordingReporter) all() []reporting.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reporting.Payload(nil), r.payloads...)
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *manualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// ===== HELPERS =====

var epoch = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func grammarBank() *bank.Bank {
	return bank.New("grammar", map[string][]models.QuestionSet{
		"pool": {{
			ID: "question_set_1",
			Questions: []models.Question{
				{ID: "Q1", Prompt: "She ___ to school.", Options: []string{"go", "goes", "going"}, Answers: []string{"B"}},
			},
		}},
	})
}

func grammarModule(duration time.Duration) modules.Definition {
	def, _ := modules.Lookup("grammar")
	def.Duration = duration
	return def
}

type fixture struct {
	connector  *countingConnector
	session    *lms.Session
	reporter   *recordingReporter
	clock      *manualClock
	controller *Controller
}

func newFixture(t *testing.T, def modules.Definition, b *bank.Bank, seed map[string]string) *fixture {
	t.Helper()
	f := &fixture{
		connector: newCountingConnector(seed),
		reporter:  &recordingReporter{},
		clock:     &manualClock{now: epoch},
	}
	f.session = lms.NewSession(f.connector, quietLogger())
	f.controller = New(def, b, f.session, f.reporter, quietLogger(), nil,
		WithNow(f.clock.Now),
		WithRand(rand.New(rand.NewSource(1))),
		WithClockOptions(timer.WithInterval(time.Hour)),
	)
	t.Cleanup(func() { f.controller.Unload(context.Background(), "test") })
	return f
}

func snapshotBlob(t *testing.T, s models.AttemptSnapshot) string {
	t.Helper()
	s.Kind = models.KindAttempt
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// ===== TESTS =====

func TestController_SubmitScoresAndReports(t *testing.T) {
	f := newFixture(t, grammarModule(time.Minute), grammarBank(), nil)
	ctx := context.Background()

	view, err := f.controller.Boot(ctx)
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	if view.Phase != models.PhaseInProgress || !view.Persistent {
		t.Fatalf("view = %+v", view)
	}
	if got := f.connector.Committed()[models.CMILessonStatus]; got != string(models.LessonIncomplete) {
		t.Errorf("lesson_status after start = %q", got)
	}

	if err := f.controller.RecordAnswer(ctx, "Q1", "B"); err != nil {
		t.Fatalf("RecordAnswer() error = %v", err)
	}
	f.clock.Advance(12 * time.Second)

	outcome, err := f.controller.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if outcome.Result.CorrectCount != 1 || outcome.Raw != 1 || outcome.Max != 1 || outcome.TimeSpent != "00:12" {
		t.Errorf("outcome = %+v", outcome)
	}

	committed := f.connector.Committed()
	if committed[models.CMIScoreRaw] != "1" || committed[models.CMIScoreMin] != "0" || committed[models.CMIScoreMax] != "1" {
		t.Errorf("score fields = %v", committed)
	}
	if committed[models.CMILessonStatus] != string(models.LessonCompleted) {
		t.Errorf("lesson_status = %q", committed[models.CMILessonStatus])
	}

	var record models.CompletionRecord
	if err := json.Unmarshal([]byte(committed[models.CMISuspendData]), &record); err != nil {
		t.Fatalf("suspend data is not a completion record: %v", err)
	}
	if record.Kind != models.KindCompletion || record.TimeSpent != "00:12" {
		t.Errorf("record = %+v", record)
	}

	payloads := f.reporter.all()
	if len(payloads) != 1 {
		t.Fatalf("got %d payloads, want 1", len(payloads))
	}
	body, _ := json.Marshal(payloads[0])
	var sent map[string]interface{}
	json.Unmarshal(body, &sent)
	if sent["score"] != float64(1) || sent["totalQuestions"] != float64(1) || sent["name"] != "Anonymous" {
		t.Errorf("payload = %s", body)
	}
	if f.controller.Phase() != models.PhaseCompleted {
		t.Errorf("phase = %s", f.controller.Phase())
	}
}

func TestController_ResumeUsesStartTime(t *testing.T) {
	seed := map[string]string{
		models.CMILessonStatus: string(models.LessonIncomplete),
		models.CMISuspendData: snapshotBlob(t, models.AttemptSnapshot{
			AttemptID: "attempt-1",
			StartTime: epoch.Add(-5000 * time.Millisecond).UnixMilli(),
			Selection: models.Selection{QuestionIDs: []string{"Q1"}, Seed: 7},
			Answers:   map[string]string{"Q1": "A"},
		}),
	}
	f := newFixture(t, grammarModule(40*time.Second), grammarBank(), seed)

	view, err := f.controller.Boot(context.Background())
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	if view.AttemptID != "attempt-1" || view.Answers["Q1"] != "A" {
		t.Errorf("resumed view = %+v", view)
	}
	if got := f.controller.Remaining(); got != 35*time.Second {
		t.Errorf("Remaining() = %v, want 35s", got)
	}
	if view.Timer == nil || view.Timer.Display != "00:35" {
		t.Errorf("timer = %+v", view.Timer)
	}
	if f.connector.Writes(models.CMILessonStatus) != 0 {
		t.Error("resume must not reset lesson status")
	}
}

func TestController_ExpiredResumeFinalizesImmediately(t *testing.T) {
	duration := 40 * time.Second
	seed := map[string]string{
		models.CMISuspendData: snapshotBlob(t, models.AttemptSnapshot{
			AttemptID: "attempt-1",
			StartTime: epoch.Add(-(duration + time.Second)).UnixMilli(),
			Selection: models.Selection{QuestionIDs: []string{"Q1"}},
			Answers:   map[string]string{"Q1": "B"},
		}),
	}
	f := newFixture(t, grammarModule(duration), grammarBank(), seed)

	view, err := f.controller.Boot(context.Background())
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	if view.Phase != models.PhaseCompleted || view.Outcome == nil {
		t.Fatalf("view = %+v", view)
	}
	if !view.Outcome.IsTimeout || view.Outcome.Raw != 1 || view.Outcome.TimeSpent != "00:40" {
		t.Errorf("outcome = %+v", view.Outcome)
	}
	if view.Timer != nil || f.controller.clock != nil {
		t.Error("no countdown should start for an expired attempt")
	}
	if len(f.reporter.all()) != 1 {
		t.Errorf("payloads = %d", len(f.reporter.all()))
	}
}

func TestController_FinalizeRunsOnce(t *testing.T) {
	f := newFixture(t, grammarModule(time.Minute), grammarBank(), nil)
	ctx := context.Background()

	if _, err := f.controller.Boot(ctx); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.controller.Submit(ctx)
		}()
		go func() {
			defer wg.Done()
			f.controller.expire()
		}()
	}
	wg.Wait()

	if n := len(f.reporter.all()); n != 1 {
		t.Errorf("payloads = %d, want 1", n)
	}
	if n := f.connector.Writes(models.CMIScoreRaw); n != 1 {
		t.Errorf("score.raw writes = %d, want 1", n)
	}

	again, err := f.controller.Submit(ctx)
	if err != nil || again == nil {
		t.Errorf("repeat Submit() = %v, %v", again, err)
	}
	if err := f.controller.RecordAnswer(ctx, "Q1", "A"); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("RecordAnswer() after finalize error = %v", err)
	}
}

func TestController_CountdownExpiry(t *testing.T) {
	f := &fixture{
		connector: newCountingConnector(nil),
		reporter:  &recordingReporter{},
		clock:     &manualClock{now: epoch},
	}
	f.session = lms.NewSession(f.connector, quietLogger())
	f.controller = New(grammarModule(time.Minute), grammarBank(), f.session, f.reporter, quietLogger(), nil,
		WithNow(f.clock.Now),
		WithClockOptions(timer.WithInterval(5*time.Millisecond)),
	)
	defer f.controller.Unload(context.Background(), "test")

	if _, err := f.controller.Boot(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(2 * time.Minute)

	deadline := time.Now().Add(2 * time.Second)
	for f.controller.Phase() != models.PhaseCompleted {
		if time.Now().After(deadline) {
			t.Fatal("countdown never finalized the attempt")
		}
		time.Sleep(5 * time.Millisecond)
	}

	outcome := f.controller.Outcome()
	if !outcome.IsTimeout || outcome.TimeSpent != "01:00" {
		t.Errorf("outcome = %+v", outcome)
	}
	if _, err := f.controller.Submit(context.Background()); err != nil {
		t.Errorf("Submit() after expiry error = %v", err)
	}
	if len(f.reporter.all()) != 1 {
		t.Errorf("payloads = %d", len(f.reporter.all()))
	}
}

func TestController_WithoutLMS(t *testing.T) {
	f := newFixture(t, grammarModule(time.Minute), grammarBank(), nil)
	f.connector.available = false
	f.session = lms.NewSession(f.connector, quietLogger())
	f.controller = New(grammarModule(time.Minute), grammarBank(), f.session, f.reporter, quietLogger(), nil,
		WithNow(f.clock.Now),
		WithClockOptions(timer.WithInterval(time.Hour)),
	)
	ctx := context.Background()

	view, err := f.controller.Boot(ctx)
	if err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	if view.Phase != models.PhaseInProgress || view.Persistent {
		t.Fatalf("view = %+v", view)
	}
	if err := f.controller.RecordAnswer(ctx, "Q1", "B"); err != nil {
		t.Fatalf("RecordAnswer() error = %v", err)
	}
	outcome, err := f.controller.Submit(ctx)
	if err != nil || outcome.Result.CorrectCount != 1 {
		t.Fatalf("Submit() = %+v, %v", outcome, err)
	}
	f.controller.Unload(ctx, "beforeunload")

	if n := f.connector.total(); n != 0 {
		t.Errorf("connector received %d calls, want none", n)
	}
	if len(f.reporter.all()) != 1 {
		t.Error("results are still reported without an LMS")
	}
}

func TestController_ShowCompleted(t *testing.T) {
	seed := map[string]string{
		models.CMILessonStatus: string(models.LessonCompleted),
		models.CMIScoreRaw:     "7",
		models.CMISuspendData:  `{"kind":"completion","completedAt":"2026-10-14T10:00:00Z","timeSpent":"12:34"}`,
	}
	f := newFixture(t, grammarModule(time.Minute), grammarBank(), seed)
	ctx := context.Background()

	view, err := f.controller.Boot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if view.Phase != models.PhaseShowCompleted || view.Prior == nil {
		t.Fatalf("view = %+v", view)
	}
	if view.Prior.ScoreRaw != "7" || view.Prior.ScoreMax != "50" || view.Prior.TimeSpent != "12:34" {
		t.Errorf("prior = %+v", view.Prior)
	}
	if len(view.Sections) != 0 {
		t.Error("completed view must not expose questions")
	}

	if err := f.controller.RecordAnswer(ctx, "Q1", "B"); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("RecordAnswer() error = %v", err)
	}
	if _, err := f.controller.Submit(ctx); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("Submit() error = %v", err)
	}
	if f.connector.Calls("set") != 0 {
		t.Error("completed view must not write to the LMS")
	}
}

func TestController_UnusableSnapshotStartsFresh(t *testing.T) {
	tests := []struct {
		name       string
		blob       string
		wantNotice bool
	}{
		{
			name: "stale question ids",
			blob: snapshotBlob(t, models.AttemptSnapshot{
				AttemptID: "old",
				StartTime: epoch.Add(-time.Second).UnixMilli(),
				Selection: models.Selection{QuestionIDs: []string{"GONE"}},
			}),
			wantNotice: true,
		},
		{name: "malformed", blob: `{"startTime":`, wantNotice: true},
		{name: "leftover completion record", blob: `{"completedAt":"2026-10-14T10:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, grammarModule(time.Minute), grammarBank(), map[string]string{models.CMISuspendData: tt.blob})

			view, err := f.controller.Boot(context.Background())
			if err != nil {
				t.Fatalf("Boot() error = %v", err)
			}
			if view.Phase != models.PhaseInProgress || view.AttemptID == "" || view.AttemptID == "old" {
				t.Errorf("view = %+v", view)
			}
			if (view.Notice != "") != tt.wantNotice {
				t.Errorf("notice = %q", view.Notice)
			}
			if f.controller.Remaining() != time.Minute {
				t.Errorf("fresh attempt remaining = %v", f.controller.Remaining())
			}
		})
	}
}

func TestController_UnloadTerminatesOnce(t *testing.T) {
	f := newFixture(t, grammarModule(time.Minute), grammarBank(), nil)
	ctx := context.Background()

	if _, err := f.controller.Boot(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.controller.Boot(ctx); err != nil {
		t.Fatal(err)
	}
	if n := f.connector.Calls("initialize"); n != 1 {
		t.Errorf("initialize calls = %d, want 1", n)
	}

	commitsBefore := f.connector.Calls("commit")
	f.controller.Unload(ctx, "beforeunload")
	f.controller.Unload(ctx, "unload")

	if n := f.connector.Calls("terminate"); n != 1 {
		t.Errorf("terminate calls = %d, want 1", n)
	}
	if n := f.connector.Calls("commit") - commitsBefore; n != 1 {
		t.Errorf("commits during unload = %d, want 1", n)
	}
	if err := f.controller.RecordAnswer(ctx, "Q1", "B"); !errors.Is(err, ErrUnloaded) {
		t.Errorf("RecordAnswer() error = %v, want ErrUnloaded", err)
	}
	if f.controller.clock.Running() {
		t.Error("countdown still running after unload")
	}
}

func TestController_RecordAnswerValidation(t *testing.T) {
	f := newFixture(t, grammarModule(time.Minute), grammarBank(), nil)
	ctx := context.Background()

	if err := f.controller.RecordAnswer(ctx, "Q1", "B"); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("before boot error = %v", err)
	}
	if _, err := f.controller.Start(ctx, ""); !errors.Is(err, ErrNotBooted) {
		t.Errorf("Start() before boot error = %v", err)
	}
	if _, err := f.controller.Boot(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.controller.RecordAnswer(ctx, "Q9", "B"); !errors.Is(err, modules.ErrUnknownQuestion) {
		t.Errorf("unknown question error = %v", err)
	}
	if _, err := f.controller.Start(ctx, ""); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Start() after boot error = %v", err)
	}

	if err := f.controller.RecordAnswer(ctx, "Q1", "C"); err != nil {
		t.Fatal(err)
	}
	if err := f.controller.ClearAnswer(ctx, "Q1"); err != nil {
		t.Fatal(err)
	}

	if v := f.controller.View(); len(v.Answers) != 0 {
		t.Errorf("answers after clear = %v", v.Answers)
	}
}

// ===== PROGRAMME MODULES =====

func listeningBank() *bank.Bank {
	q := func(id, answer string) models.Question {
		return models.Question{ID: id, Prompt: id, Options: []string{"A", "B"}, Answers: []string{answer}}
	}
	return bank.New("listening", map[string][]models.QuestionSet{
		"General": {{ID: "set_1", Audio: "general.mp3", Questions: []models.Question{q("G1", "A")}}},
		"ICT":     {{ID: "set_1", Audio: "ict.mp3", Questions: []models.Question{q("I1", "B")}}},
	})
}

func TestController_ProgrammeFlow(t *testing.T) {
	def, _ := modules.Lookup("listening")
	f := newFixture(t, def, listeningBank(), nil)
	ctx := context.Background()

	view, err := f.controller.Boot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if view.Phase != models.PhaseAwaitingStart || len(view.Programs) != 1 || view.Programs[0].Key != "ICT" {
		t.Fatalf("view = %+v", view)
	}

	if err := f.controller.RecordAnswer(ctx, "G1", "A"); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("RecordAnswer() before start error = %v", err)
	}
	if _, err := f.controller.Start(ctx, ""); !errors.Is(err, ErrProgramRequired) {
		t.Errorf("Start(\"\") error = %v", err)
	}
	if _, err := f.controller.Start(ctx, "MT"); !errors.Is(err, bank.ErrUnknownProgram) {
		t.Errorf("Start(MT) error = %v", err)
	}

	view, err = f.controller.Start(ctx, "ICT")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if view.Phase != models.PhaseInProgress || len(view.Sections) != 2 || view.ProgramLabel != "ICT - Information and Communication Technology" {
		t.Fatalf("view = %+v", view)
	}
	for _, s := range view.Sections {
		for _, item := range s.Items {
			if item.ID == "" || item.Prompt == "" {
				t.Errorf("item = %+v", item)
			}
		}
	}

	if err := f.controller.UpdateAux(ctx, modules.AudioKey, modules.PlayAudio(modules.SectionSpecific)); !errors.Is(err, modules.ErrSectionLocked) {
		t.Errorf("locked play error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := f.controller.UpdateAux(ctx, modules.AudioKey, modules.PlayAudio(modules.SectionGeneral)); err != nil {
			t.Fatalf("play %d error = %v", i, err)
		}
	}
	if err := f.controller.UpdateAux(ctx, modules.MatchKey, modules.UnassignWord("G1")); !errors.Is(err, ErrUnsupportedAux) {
		t.Errorf("foreign aux error = %v", err)
	}

	f.controller.RecordAnswer(ctx, "G1", "A")
	f.controller.RecordAnswer(ctx, "I1", "A")
	outcome, err := f.controller.Submit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Raw != 1 || outcome.Max != 2 {
		t.Errorf("outcome = %+v", outcome)
	}

	p := f.reporter.all()[0]
	if p.AudioUsage != "Listening 1 plays: 2/2, Listening 2 plays: 0/2" || p.Program != "ICT - Information and Communication Technology" {
		t.Errorf("payload = %+v", p)
	}
}

func vocabularyBank() *bank.Bank {
	return bank.New("vocabulary", map[string][]models.QuestionSet{
		"MT": {{ID: "set_1", Questions: []models.Question{
			{ID: "V1", Prompt: "Used to tighten bolts", Answers: []string{"spanner"}},
			{ID: "V2", Prompt: "Shapes metal on a spindle", Answers: []string{"lathe"}},
		}}},
	})
}

func TestController_WordMatchSurvivesReload(t *testing.T) {
	def, _ := modules.Lookup("vocabulary")
	f := newFixture(t, def, vocabularyBank(), nil)
	ctx := context.Background()

	if _, err := f.controller.Boot(ctx); err != nil {
		t.Fatal(err)
	}
	view, err := f.controller.Start(ctx, "MT")
	if err != nil {
		t.Fatal(err)
	}
	bankTokens := view.Tokens[modules.MatchKey]
	if len(bankTokens) != 2 {
		t.Fatalf("tokens = %v", view.Tokens)
	}

	if err := f.controller.UpdateAux(ctx, modules.MatchKey, modules.AssignWord("V1", "token_0")); err != nil {
		t.Fatal(err)
	}
	if err := f.controller.UpdateAux(ctx, modules.MatchKey, modules.AssignWord("V2", "token_9")); !errors.Is(err, modules.ErrUnknownToken) {
		t.Errorf("bad token error = %v", err)
	}
	f.clock.Advance(30 * time.Second)
	f.controller.Unload(ctx, "pagehide")

	// a new page load against what the LMS committed
	reloaded := newFixture(t, def, vocabularyBank(), f.connector.Committed())
	reloaded.clock.Advance(30 * time.Second)
	view, err = reloaded.controller.Boot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if view.Phase != models.PhaseInProgress || view.Answers["V1"] != "spanner" {
		t.Fatalf("reloaded view = %+v", view)
	}
	if got := reloaded.controller.Remaining(); got != 4*time.Minute+30*time.Second {
		t.Errorf("Remaining() = %v", got)
	}
	for i, tok := range view.Tokens[modules.MatchKey] {
		if tok != bankTokens[i] {
			t.Errorf("word bank layout changed across reload: %v vs %v", view.Tokens, bankTokens)
		}
	}
	var match modules.WordMatch
	if err := json.Unmarshal(view.Aux, &match); err != nil || match.Assignments["V1"] != "token_0" {
		t.Errorf("aux = %s, err = %v", view.Aux, err)
	}
}

func TestController_UntimedModule(t *testing.T) {
	def, _ := modules.Lookup("speaking")
	b := bank.New("speaking", map[string][]models.QuestionSet{
		"sets": {{ID: "set_1", Questions: []models.Question{{ID: "S1", Prompt: "Describe your workshop", Answers: []string{"my workshop is clean"}}}}},
	})
	seed := map[string]string{
		models.CMISuspendData: snapshotBlob(t, models.AttemptSnapshot{
			AttemptID: "long-ago",
			StartTime: epoch.Add(-48 * time.Hour).UnixMilli(),
			Selection: models.Selection{SetKey: "set_1"},
		}),
	}
	f := newFixture(t, def, b, seed)
	ctx := context.Background()

	view, err := f.controller.Boot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if view.Phase != models.PhaseInProgress || !view.Untimed || view.Timer != nil {
		t.Fatalf("view = %+v", view)
	}

	f.controller.RecordAnswer(ctx, "S1", "My workshop is clean!")
	outcome, err := f.controller.Submit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Raw != 3 || outcome.Max != 3 || outcome.IsTimeout {
		t.Errorf("outcome = %+v", outcome)
	}
}
