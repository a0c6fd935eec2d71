package progress

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/SAP-F-2025/placement-service/internal/lms"
	"github.com/SAP-F-2025/placement-service/internal/models"
	"github.com/SAP-F-2025/placement-service/internal/validator"
)

func newTestStore(t *testing.T, seed map[string]string, limit int) (*Store, *lms.MemoryConnector) {
	t.Helper()
	conn := lms.NewMemoryConnector(seed)
	session := lms.NewSession(conn, nil)
	if got := session.Connect(context.Background()); got != lms.Connected {
		t.Fatalf("Connect() = %v", got)
	}
	return NewStore(session, validator.New(), nil, limit), conn
}

func sampleSnapshot() *models.AttemptSnapshot {
	return &models.AttemptSnapshot{
		Kind:      models.KindAttempt,
		AttemptID: "a-1",
		StartTime: 1700000000000,
		Selection: models.Selection{
			Program: "ICT",
			SetIDs:  map[string]string{"general": "set_2", "specific": "set_1"},
		},
		Answers: map[string]string{"q1": "B", "q7": "were going"},
		AuxState: map[string]json.RawMessage{
			"audio": json.RawMessage(`{"general":{"playsUsed":1}}`),
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, conn := newTestStore(t, nil, 0)
	want := sampleSnapshot()

	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if conn.Committed()[models.CMISuspendData] == "" {
		t.Fatal("Save() did not commit")
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestStore_SaveEmptyAnswers(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, nil, 0)
	snapshot := sampleSnapshot()
	snapshot.Answers = nil

	if err := store.Save(ctx, snapshot); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Answers == nil || len(got.Answers) != 0 {
		t.Errorf("Answers = %v, want empty map", got.Answers)
	}
}

func TestStore_LoadUnusable(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		wantErr error
	}{
		{name: "missing", stored: "", wantErr: ErrNoSnapshot},
		{name: "not json", stored: "{startTime:", wantErr: ErrMalformedSnapshot},
		{name: "wrong shape", stored: `{"startTime":"yesterday"}`, wantErr: ErrMalformedSnapshot},
		{name: "no start time", stored: `{"kind":"attempt","selection":{"setKey":"set_1"},"answers":{}}`, wantErr: ErrMalformedSnapshot},
		{name: "no selection", stored: `{"kind":"attempt","startTime":1700000000000,"answers":{}}`, wantErr: ErrMalformedSnapshot},
		{name: "completion record", stored: `{"kind":"completion","completedAt":"2024-01-01T00:00:00Z","timeSpent":"10:00"}`, wantErr: ErrNoSnapshot},
		{name: "untagged completion record", stored: `{"completedAt":"2024-01-01T00:00:00Z","timeSpent":"10:00"}`, wantErr: ErrNoSnapshot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t, map[string]string{models.CMISuspendData: tt.stored}, 0)
			got, err := store.Load(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if got != nil {
				t.Errorf("Load() = %+v, want nil", got)
			}
		})
	}
}

func TestStore_SaveOverLimitDropsAuxState(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, nil, 200)
	snapshot := sampleSnapshot()
	snapshot.AuxState["scramble"] = json.RawMessage(`"` + strings.Repeat("x", 300) + `"`)

	if err := store.Save(ctx, snapshot); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.AuxState) != 0 {
		t.Errorf("AuxState = %v, want dropped", got.AuxState)
	}
	if !reflect.DeepEqual(got.Answers, snapshot.Answers) {
		t.Errorf("Answers = %v, want %v", got.Answers, snapshot.Answers)
	}
}

func TestStore_Completion(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, nil, 0)
	store.Save(ctx, sampleSnapshot())

	record := &models.CompletionRecord{
		CompletedAt:  "2024-03-01T09:30:00Z",
		TimeSpent:    "12:05",
		Program:      "ICT",
		ProgramLabel: models.ProgramLabel("ICT"),
		AuxSummary:   "Listening 1 plays: 2/2, Listening 2 plays: 1/2",
	}
	if err := store.WriteCompletion(ctx, record); err != nil {
		t.Fatalf("WriteCompletion() error = %v", err)
	}

	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Load() after completion error = %v, want ErrNoSnapshot", err)
	}

	got, err := store.LoadCompletion(ctx)
	if err != nil {
		t.Fatalf("LoadCompletion() error = %v", err)
	}
	want := *record
	want.Kind = models.KindCompletion
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("LoadCompletion() = %+v, want %+v", *got, want)
	}
}

func TestStore_CompletionOverLimitIsMinimal(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, nil, 80)

	record := &models.CompletionRecord{
		CompletedAt: "2024-03-01T09:30:00Z",
		TimeSpent:   "12:05",
		AuxSummary:  strings.Repeat("plays ", 40),
	}
	if err := store.WriteCompletion(ctx, record); err != nil {
		t.Fatalf("WriteCompletion() error = %v", err)
	}
	got, err := store.LoadCompletion(ctx)
	if err != nil {
		t.Fatalf("LoadCompletion() error = %v", err)
	}
	if got.AuxSummary != "" || got.CompletedAt != record.CompletedAt || got.TimeSpent != record.TimeSpent {
		t.Errorf("LoadCompletion() = %+v", got)
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	store, conn := newTestStore(t, nil, 0)
	store.Save(ctx, sampleSnapshot())

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := conn.Committed()[models.CMISuspendData]; got != "" {
		t.Errorf("suspend data = %q, want empty", got)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Load() error = %v, want ErrNoSnapshot", err)
	}
}

func TestStore_InactiveSlot(t *testing.T) {
	ctx := context.Background()
	store := NewStore(lms.NewSession(lms.Unavailable{}, nil), validator.New(), nil, 0)

	if err := store.Save(ctx, sampleSnapshot()); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if err := store.WriteCompletion(ctx, &models.CompletionRecord{}); err != nil {
		t.Errorf("WriteCompletion() error = %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Load() error = %v, want ErrNoSnapshot", err)
	}
}
