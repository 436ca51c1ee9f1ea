package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/middleware"
)

var validActions = map[string]bool{
	ActionCreate: true, ActionUpdate: true, ActionDelete: true,
	ActionLogin: true, ActionLogout: true, ActionView: true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Append stores one audit entry. Entries are never updated or deleted.
func (s *Service) Append(ctx context.Context, l *Log) error {
	if !validActions[l.Action] {
		return apperr.Validation("unknown action %q", l.Action)
	}
	if l.Status == "" {
		l.Status = StatusSuccess
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Record satisfies the HTTP audit middleware. The action is derived from
// the HTTP method, the entity type and id from the request path.
func (s *Service) Record(ctx context.Context, e middleware.Entry) error {
	l := &Log{
		Action:      actionFromMethod(e.Method),
		EntityType:  entityTypeFromPath(e.Path),
		EntityID:    entityIDFromPath(e.Path),
		Description: fmt.Sprintf("%s %s", e.Method, e.Path),
		Status:      StatusSuccess,
	}
	if e.Status >= 400 {
		l.Status = StatusFailure
	}
	if e.ErrorMessage != "" {
		l.ErrorMessage = &e.ErrorMessage
	}
	if e.IPAddress != "" {
		l.IPAddress = &e.IPAddress
	}
	if e.UserAgent != "" {
		l.UserAgent = &e.UserAgent
	}
	if uid, err := uuid.Parse(e.ActorID); err == nil {
		l.UserID = &uid
	}
	return s.Append(ctx, l)
}

// RecordLogin writes a LOGIN entry for an attempt against the given email.
// Failed attempts are kept too, so repeated guesses leave a trail.
func (s *Service) RecordLogin(ctx context.Context, userID *uuid.UUID, email, ip, userAgent string, loginErr error) error {
	l := &Log{
		UserID:      userID,
		Action:      ActionLogin,
		EntityType:  "auth",
		Description: "login " + email,
		Status:      StatusSuccess,
	}
	if loginErr != nil {
		msg := loginErr.Error()
		l.Status = StatusFailure
		l.ErrorMessage = &msg
	}
	if ip != "" {
		l.IPAddress = &ip
	}
	if userAgent != "" {
		l.UserAgent = &userAgent
	}
	return s.Append(ctx, l)
}

func actionFromMethod(method string) string {
	switch strings.ToUpper(method) {
	case "POST":
		return ActionCreate
	case "PUT", "PATCH":
		return ActionUpdate
	case "DELETE":
		return ActionDelete
	default:
		return ActionView
	}
}

func entityTypeFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == "v1" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}

func entityIDFromPath(path string) *string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == "v1" && i+2 < len(parts) {
			return &parts[i+2]
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Log, int, error) {
	f.Action = strings.ToUpper(strings.TrimSpace(f.Action))
	if f.Action != "" && !validActions[f.Action] {
		return nil, 0, apperr.Validation("unknown action %q", f.Action)
	}
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}
