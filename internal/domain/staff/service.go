package staff

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/auth"
)

const minPasswordLength = 8

type Service struct {
	users       UserRepository
	departments DepartmentRepository
	issuer      *auth.TokenIssuer
	logger      zerolog.Logger
}

func NewService(users UserRepository, departments DepartmentRepository, issuer *auth.TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{users: users, departments: departments, issuer: issuer, logger: logger}
}

// -- Users --

type CreateUserInput struct {
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"email"`
	Password     string     `json:"password"`
	Phone        *string    `json:"phone"`
	Role         string     `json:"role"`
	DepartmentID *uuid.UUID `json:"department_id"`
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	if in.FirstName == "" || in.LastName == "" {
		return nil, apperr.Validation("first_name and last_name are required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	role, err := auth.ParseRole(in.Role)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	if (role == auth.RoleDoctor || role == auth.RoleNurse) && in.DepartmentID == nil {
		return nil, apperr.Validation("department_id is required for role %s", role)
	}
	if in.DepartmentID != nil {
		if _, err := s.departments.GetByID(ctx, *in.DepartmentID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperr.NotFound("department %s not found", in.DepartmentID)
			}
			return nil, apperr.Internal(err)
		}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email %s is already registered", email)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	u := &User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: string(hash),
		Phone:        in.Phone,
		Role:         role,
		DepartmentID: in.DepartmentID,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

type UpdateUserInput struct {
	FirstName    *string    `json:"first_name"`
	LastName     *string    `json:"last_name"`
	Phone        *string    `json:"phone"`
	Role         *string    `json:"role"`
	DepartmentID *uuid.UUID `json:"department_id"`
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		u.Phone = in.Phone
	}
	if in.Role != nil {
		role, err := auth.ParseRole(*in.Role)
		if err != nil {
			return nil, apperr.Validation("%v", err)
		}
		u.Role = role
	}
	if in.DepartmentID != nil {
		u.DepartmentID = in.DepartmentID
	}
	if (u.Role == auth.RoleDoctor || u.Role == auth.RoleNurse) && u.DepartmentID == nil {
		return nil, apperr.Validation("department_id is required for role %s", u.Role)
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// DeactivateUser soft-deletes. The record stays for audit and history.
func (s *Service) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !u.Active {
		return apperr.NotFound("user %s not found", id)
	}
	if err := s.users.Deactivate(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context, f UserFilter, limit, offset int) ([]*User, int, error) {
	items, total, err := s.users.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// -- Login --

type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Login authenticates a staff member logging in as the given actor role.
// Unknown email, wrong password and deactivated accounts all produce the
// same generic unauthorized error so accounts cannot be enumerated. A role
// mismatch on otherwise valid credentials is a distinct forbidden error.
func (s *Service) Login(ctx context.Context, actor, email, password string) (*LoginResult, error) {
	role, err := auth.ParseRole(actor)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, apperr.Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if !u.Active {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if u.Role != role {
		return nil, apperr.Forbidden("account does not hold the %s role", role)
	}

	token, err := s.issuer.Issue(u.ID, u.Role, u.DepartmentID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.users.UpdateLastLogin(ctx, u.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("last login update failed")
	}

	return &LoginResult{Token: token, User: u}, nil
}

// -- Departments --

type DepartmentInput struct {
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description *string `json:"description"`
}

func (s *Service) CreateDepartment(ctx context.Context, in DepartmentInput) (*Department, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	if _, err := s.departments.GetByName(ctx, in.Name); err == nil {
		return nil, apperr.Conflict("department %q already exists", in.Name)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Internal(err)
	}

	d := &Department{
		Name:        strings.TrimSpace(in.Name),
		Code:        strings.ToUpper(strings.TrimSpace(in.Code)),
		Description: in.Description,
		Active:      true,
	}
	if err := s.departments.Create(ctx, d); err != nil {
		return nil, apperr.Internal(err)
	}
	return d, nil
}

func (s *Service) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	d, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("department %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return d, nil
}

func (s *Service) UpdateDepartment(ctx context.Context, id uuid.UUID, in DepartmentInput) (*Department, error) {
	d, err := s.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) != "" {
		d.Name = strings.TrimSpace(in.Name)
	}
	if strings.TrimSpace(in.Code) != "" {
		d.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	}
	if in.Description != nil {
		d.Description = in.Description
	}
	if err := s.departments.Update(ctx, d); err != nil {
		return nil, apperr.Internal(err)
	}
	return d, nil
}

func (s *Service) DeactivateDepartment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetDepartment(ctx, id); err != nil {
		return err
	}
	if err := s.departments.Deactivate(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) ListDepartments(ctx context.Context, includeInactive bool, limit, offset int) ([]*Department, int, error) {
	items, total, err := s.departments.List(ctx, includeInactive, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}
