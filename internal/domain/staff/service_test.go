package staff

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
)

// -- Mock Repositories --

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	if u, ok := m.users[id]; ok {
		now := time.Now()
		u.LastLogin = &now
	}
	return nil
}

func (m *mockUserRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if u, ok := m.users[id]; ok {
		u.Active = false
	}
	return nil
}

func (m *mockUserRepo) List(_ context.Context, f UserFilter, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		if !f.IncludeInactive && !u.Active {
			continue
		}
		if f.Role != "" && string(u.Role) != f.Role {
			continue
		}
		result = append(result, u)
	}
	return result, len(result), nil
}

type mockDepartmentRepo struct {
	departments map[uuid.UUID]*Department
}

func newMockDepartmentRepo() *mockDepartmentRepo {
	return &mockDepartmentRepo{departments: make(map[uuid.UUID]*Department)}
}

func (m *mockDepartmentRepo) Create(_ context.Context, d *Department) error {
	d.ID = uuid.New()
	m.departments[d.ID] = d
	return nil
}

func (m *mockDepartmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return d, nil
}

func (m *mockDepartmentRepo) GetByName(_ context.Context, name string) (*Department, error) {
	for _, d := range m.departments {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockDepartmentRepo) Update(_ context.Context, d *Department) error {
	m.departments[d.ID] = d
	return nil
}

func (m *mockDepartmentRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if d, ok := m.departments[id]; ok {
		d.Active = false
	}
	return nil
}

func (m *mockDepartmentRepo) List(_ context.Context, includeInactive bool, limit, offset int) ([]*Department, int, error) {
	var result []*Department
	for _, d := range m.departments {
		if !includeInactive && !d.Active {
			continue
		}
		result = append(result, d)
	}
	return result, len(result), nil
}

// -- Tests --

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestService() (*Service, *mockUserRepo, *mockDepartmentRepo) {
	users := newMockUserRepo()
	departments := newMockDepartmentRepo()
	issuer := auth.NewTokenIssuer(testSecret, 15*time.Minute)
	return NewService(users, departments, issuer, zerolog.Nop()), users, departments
}

func seedDepartment(t *testing.T, svc *Service) *Department {
	t.Helper()
	d, err := svc.CreateDepartment(context.Background(), DepartmentInput{Name: "Cardiology", Code: "card"})
	if err != nil {
		t.Fatalf("seed department: %v", err)
	}
	return d
}

func seedUser(t *testing.T, svc *Service, role string, deptID *uuid.UUID) *User {
	t.Helper()
	u, err := svc.CreateUser(context.Background(), CreateUserInput{
		FirstName:    "Ada",
		LastName:     "Mensah",
		Email:        "ada.mensah@example.org",
		Password:     "s3cret-pass",
		Role:         role,
		DepartmentID: deptID,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestCreateUser(t *testing.T) {
	svc, _, _ := newTestService()
	d := seedDepartment(t, svc)
	u := seedUser(t, svc, "DOCTOR", &d.ID)

	if u.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if u.Email != "ada.mensah@example.org" {
		t.Errorf("unexpected email %s", u.Email)
	}
	if u.PasswordHash == "s3cret-pass" {
		t.Error("password must be hashed")
	}
	if !u.Active {
		t.Error("new users should be active")
	}
	if u.FullName() != "Ada Mensah" {
		t.Errorf("unexpected full name %s", u.FullName())
	}
}

func TestCreateUser_ShortPassword(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		FirstName: "Ada", LastName: "Mensah", Email: "a@b.c", Password: "short", Role: "ADMIN",
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreateUser_DoctorRequiresDepartment(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		FirstName: "Ada", LastName: "Mensah", Email: "a@b.c", Password: "s3cret-pass", Role: "DOCTOR",
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	seedUser(t, svc, "ADMIN", nil)
	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		FirstName: "Kofi", LastName: "Mensah", Email: "ADA.MENSAH@example.org", Password: "s3cret-pass", Role: "ADMIN",
	})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, users, _ := newTestService()
	u := seedUser(t, svc, "ADMIN", nil)

	res, err := svc.Login(context.Background(), "admin", "Ada.Mensah@example.org", "s3cret-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Token == "" {
		t.Error("expected a token")
	}
	if users.users[u.ID].LastLogin == nil {
		t.Error("expected last login to be recorded")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService()
	seedUser(t, svc, "ADMIN", nil)
	_, err := svc.Login(context.Background(), "ADMIN", "ada.mensah@example.org", "wrong-pass")
	if !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Login(context.Background(), "ADMIN", "nobody@example.org", "s3cret-pass")
	if !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	svc, _, _ := newTestService()
	u := seedUser(t, svc, "ADMIN", nil)
	if err := svc.DeactivateUser(context.Background(), u.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := svc.Login(context.Background(), "ADMIN", "ada.mensah@example.org", "s3cret-pass")
	if !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Errorf("expected generic unauthorized for inactive account, got %v", err)
	}
}

func TestLogin_RoleMismatch(t *testing.T) {
	svc, _, _ := newTestService()
	seedUser(t, svc, "ADMIN", nil)
	// Correct credentials, wrong actor role: distinct forbidden error.
	_, err := svc.Login(context.Background(), "DOCTOR", "ada.mensah@example.org", "s3cret-pass")
	if !apperr.IsKind(err, apperr.KindForbidden) {
		t.Errorf("expected forbidden for role mismatch, got %v", err)
	}
}

func TestDeactivateUser_ExcludedFromDefaultList(t *testing.T) {
	svc, _, _ := newTestService()
	u := seedUser(t, svc, "ADMIN", nil)
	if err := svc.DeactivateUser(context.Background(), u.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	items, _, err := svc.ListUsers(context.Background(), UserFilter{}, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected deactivated user excluded, got %d items", len(items))
	}

	items, _, err = svc.ListUsers(context.Background(), UserFilter{IncludeInactive: true}, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected deactivated user retained, got %d items", len(items))
	}
}

func TestDeactivateUser_Twice(t *testing.T) {
	svc, _, _ := newTestService()
	u := seedUser(t, svc, "ADMIN", nil)
	if err := svc.DeactivateUser(context.Background(), u.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	err := svc.DeactivateUser(context.Background(), u.ID)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found on second deactivation, got %v", err)
	}
}

func TestCreateDepartment_Duplicate(t *testing.T) {
	svc, _, _ := newTestService()
	seedDepartment(t, svc)
	_, err := svc.CreateDepartment(context.Background(), DepartmentInput{Name: "Cardiology", Code: "CARD"})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestCreateDepartment_CodeUppercased(t *testing.T) {
	svc, _, _ := newTestService()
	d := seedDepartment(t, svc)
	if d.Code != "CARD" {
		t.Errorf("expected code CARD, got %s", d.Code)
	}
}
