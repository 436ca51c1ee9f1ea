package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/middleware"
)

type mockRepo struct {
	logs []*Log
}

func (m *mockRepo) Create(_ context.Context, l *Log) error {
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	m.logs = append(m.logs, l)
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Log, int, error) {
	var result []*Log
	for _, l := range m.logs {
		if f.UserID != nil && (l.UserID == nil || *l.UserID != *f.UserID) {
			continue
		}
		if f.Action != "" && l.Action != f.Action {
			continue
		}
		if f.EntityType != "" && l.EntityType != f.EntityType {
			continue
		}
		result = append(result, l)
	}
	return result, len(result), nil
}

func TestRecord(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	actor := uuid.New()

	err := svc.Record(context.Background(), middleware.Entry{
		ActorID:   actor.String(),
		Method:    "POST",
		Path:      "/api/v1/patients",
		Status:    201,
		IPAddress: "10.0.0.7",
		UserAgent: "curl/8.4",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(repo.logs) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.logs))
	}
	l := repo.logs[0]
	if l.Action != ActionCreate {
		t.Errorf("expected POST to map to CREATE, got %s", l.Action)
	}
	if l.EntityType != "patients" {
		t.Errorf("expected entity type patients, got %s", l.EntityType)
	}
	if l.UserID == nil || *l.UserID != actor {
		t.Error("expected actor to be recorded")
	}
	if l.Status != StatusSuccess {
		t.Errorf("expected SUCCESS, got %s", l.Status)
	}
	if l.IPAddress == nil || *l.IPAddress != "10.0.0.7" {
		t.Error("expected client ip to be recorded")
	}
	if l.UserAgent == nil || *l.UserAgent != "curl/8.4" {
		t.Error("expected user agent to be recorded")
	}
}

func TestRecord_Failure(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	err := svc.Record(context.Background(), middleware.Entry{
		ActorID:      uuid.NewString(),
		Method:       "POST",
		Path:         "/api/v1/admissions",
		Status:       409,
		ErrorMessage: "bed is already occupied",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	l := repo.logs[0]
	if l.Status != StatusFailure {
		t.Errorf("expected FAILURE, got %s", l.Status)
	}
	if l.ErrorMessage == nil || *l.ErrorMessage != "bed is already occupied" {
		t.Error("expected the rejection reason to be recorded")
	}
}

func TestRecord_UnparsableActor(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	if err := svc.Record(context.Background(), middleware.Entry{Method: "DELETE", Path: "/api/v1/drugs/abc", Status: 204}); err != nil {
		t.Fatalf("record: %v", err)
	}
	l := repo.logs[0]
	if l.UserID != nil {
		t.Error("expected nil user id for unparsable actor")
	}
	if l.Action != ActionDelete {
		t.Errorf("expected DELETE action, got %s", l.Action)
	}
	if l.EntityID == nil || *l.EntityID != "abc" {
		t.Error("expected entity id from the path")
	}
}

func TestRecordLogin(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	userID := uuid.New()

	if err := svc.RecordLogin(context.Background(), &userID, "doc@example.com", "10.0.0.7", "curl/8.4", nil); err != nil {
		t.Fatalf("record login: %v", err)
	}
	if err := svc.RecordLogin(context.Background(), nil, "doc@example.com", "10.0.0.7", "curl/8.4", apperr.Unauthorized("invalid credentials")); err != nil {
		t.Fatalf("record login failure: %v", err)
	}

	ok, failed := repo.logs[0], repo.logs[1]
	if ok.Action != ActionLogin || ok.Status != StatusSuccess || ok.UserID == nil {
		t.Errorf("unexpected success entry: %+v", ok)
	}
	if failed.Status != StatusFailure || failed.ErrorMessage == nil || failed.UserID != nil {
		t.Errorf("unexpected failure entry: %+v", failed)
	}
}

func TestAppend_InvalidAction(t *testing.T) {
	svc := NewService(&mockRepo{})
	err := svc.Append(context.Background(), &Log{Action: "EXPORT", EntityType: "patients", Description: "x"})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestList_Filters(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	actor := uuid.New()
	svc.Record(context.Background(), middleware.Entry{ActorID: actor.String(), Method: "POST", Path: "/api/v1/patients", Status: 201})
	svc.Record(context.Background(), middleware.Entry{ActorID: uuid.NewString(), Method: "PUT", Path: "/api/v1/wards/1", Status: 200})

	items, total, err := svc.List(context.Background(), Filter{UserID: &actor}, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || items[0].EntityType != "patients" {
		t.Errorf("expected the actor's single entry, got %d", total)
	}

	if _, _, err := svc.List(context.Background(), Filter{Action: "export"}, 20, 0); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for unknown action, got %v", err)
	}
}

func TestEntityTypeFromPath(t *testing.T) {
	cases := map[string]string{
		"/api/v1/patients":       "patients",
		"/api/v1/beds/42/status": "beds",
		"/health":                "health",
	}
	for path, want := range cases {
		if got := entityTypeFromPath(path); got != want {
			t.Errorf("%s: expected %s, got %s", path, want, got)
		}
	}
}

func TestEntityIDFromPath(t *testing.T) {
	if got := entityIDFromPath("/api/v1/beds/42/status"); got == nil || *got != "42" {
		t.Errorf("expected id 42, got %v", got)
	}
	if got := entityIDFromPath("/api/v1/patients"); got != nil {
		t.Errorf("expected no id for a collection path, got %q", *got)
	}
}
