package service

import (
	"context"
	"strings"
	"time"

	"github.com/portal-admin/internal/auth"
	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/logging"
	"github.com/portal-admin/internal/models"
	"github.com/portal-admin/internal/storage"
	"github.com/portal-admin/internal/types"
)

// UserStore persists users; satisfied by *storage.UserRepository
type UserStore interface {
	Store[models.User]
	GetCredentialsByPhone(ctx context.Context, phone string) (*models.Credentials, error)
	UpdatePinHash(ctx context.Context, id int64, pinHash string) error
}

// LoginThrottle blocks repeated failed logins; satisfied by *ratelimit.LoginThrottle
type LoginThrottle interface {
	Check(ctx context.Context, identifier string) (bool, time.Duration, error)
	RecordFailure(ctx context.Context, identifier string) (int, error)
	Reset(ctx context.Context, identifier string) error
}

// RegisterInput is a self-service sign-up
type RegisterInput struct {
	Name          string  `json:"name" validate:"required,max=255"`
	Phone         string  `json:"phone" validate:"required,numeric,min=10,max=15"`
	Pin           string  `json:"pin" validate:"required,numeric,min=4,max=6"`
	Email         *string `json:"email" validate:"omitempty,email"`
	CenterName    string  `json:"centerName" validate:"max=255"`
	CenterAddress string  `json:"centerAddress"`
}

// LoginInput is a phone and pin login
type LoginInput struct {
	Phone string `json:"phone" validate:"required"`
	Pin   string `json:"pin" validate:"required"`
}

// LoginResult is a session token and the user it belongs to
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// CreateUserInput is an account created by an administrator
type CreateUserInput struct {
	RegisterInput
	Role          string `json:"role" validate:"required,role"`
	Status        string `json:"status" validate:"omitempty,userstatus"`
	ParentAgentID *int64 `json:"parentAgentId" validate:"omitempty,gt=0"`
}

// UpdateUserInput changes profile, role or status. Balance and pin have
// their own operations.
type UpdateUserInput struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email         *string `json:"email" validate:"omitempty,email"`
	CenterName    *string `json:"centerName" validate:"omitempty,max=255"`
	CenterAddress *string `json:"centerAddress"`
	Role          *string `json:"role" validate:"omitempty,role"`
	Status        *string `json:"status" validate:"omitempty,userstatus"`
	ParentAgentID *int64  `json:"parentAgentId" validate:"omitempty,gt=0"`
}

func (in *UpdateUserInput) Values() map[string]any {
	v := map[string]any{}
	put(v, "name", in.Name)
	put(v, "email", in.Email)
	put(v, "center_name", in.CenterName)
	put(v, "center_address", in.CenterAddress)
	put(v, "role", in.Role)
	put(v, "status", in.Status)
	put(v, "parent_agent_id", in.ParentAgentID)
	return v
}

// ResetPinInput sets a new pin
type ResetPinInput struct {
	Pin string `json:"pin" validate:"required,numeric,min=4,max=6"`
}

// UserService handles accounts and sessions
type UserService struct {
	store    UserStore
	tokens   *auth.TokenManager
	throttle LoginThrottle
	logger   *logging.Logger
}

// NewUserService creates the user service. throttle may be nil.
func NewUserService(store UserStore, tokens *auth.TokenManager, throttle LoginThrottle, logger *logging.Logger) *UserService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &UserService{
		store:    store,
		tokens:   tokens,
		throttle: throttle,
		logger:   logger.WithField("component", "users"),
	}
}

// Register creates an active entrepreneur account
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	values, err := s.accountValues(input, types.RoleEntrepreneur, types.UserStatusActive)
	if err != nil {
		return nil, err
	}
	return s.store.Create(ctx, values)
}

// Login verifies phone and pin and issues a session token
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	phone := strings.TrimSpace(input.Phone)

	if s.throttle != nil {
		allowed, retryAfter, err := s.throttle.Check(ctx, phone)
		if err != nil {
			s.logger.WithError(err).Warn("login throttle unavailable")
		} else if !allowed {
			return nil, apperrors.NewRateLimitError(int(retryAfter.Round(time.Second).Seconds()))
		}
	}

	creds, err := s.store.GetCredentialsByPhone(ctx, phone)
	if err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, err
	}
	if creds == nil || !auth.ComparePin(creds.PinHash, input.Pin) {
		s.recordFailure(ctx, phone)
		return nil, apperrors.NewUnauthorizedError("invalid phone or pin")
	}
	if creds.Status != types.UserStatusActive {
		return nil, apperrors.NewForbiddenError("account is " + string(creds.Status))
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, phone); err != nil {
			s.logger.WithError(err).Warn("failed to reset login throttle")
		}
	}

	token, err := s.tokens.Generate(creds.ID, creds.Role)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue session", err)
	}
	user, err := s.store.GetByID(ctx, creds.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokens.TTL()).UTC(),
		User:      user,
	}, nil
}

func (s *UserService) recordFailure(ctx context.Context, phone string) {
	if s.throttle == nil {
		return
	}
	if _, err := s.throttle.RecordFailure(ctx, phone); err != nil {
		s.logger.WithError(err).Warn("failed to record login failure")
	}
}

// Me returns the caller's own profile
func (s *UserService) Me(ctx context.Context) (*models.User, error) {
	id, err := auth.Guard(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id.UserID)
}

// List returns users for administrators
func (s *UserService) List(ctx context.Context, params storage.ListParams) (*storage.Page[models.User], error) {
	if _, err := auth.Guard(ctx, auth.Admins...); err != nil {
		return nil, err
	}
	return s.store.List(ctx, params)
}

// Get returns one user for administrators
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	if _, err := auth.Guard(ctx, auth.Admins...); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Create adds an account of any role. Only a super admin may create another.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	caller, err := auth.Guard(ctx, auth.Admins...)
	if err != nil {
		return nil, err
	}
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	role := types.Role(input.Role)
	if err := checkRoleGrant(caller, role); err != nil {
		return nil, err
	}
	if role == types.RoleSubAgent && input.ParentAgentID == nil {
		return nil, apperrors.NewValidationError("invalid input", map[string]string{
			"parentAgentId": "is required for sub agents",
		})
	}

	status := types.UserStatusActive
	if input.Status != "" {
		status = types.UserStatus(input.Status)
	}

	values, err := s.accountValues(input.RegisterInput, role, status)
	if err != nil {
		return nil, err
	}
	if input.ParentAgentID != nil {
		values["parent_agent_id"] = *input.ParentAgentID
	}

	user, err := s.store.Create(ctx, values)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(map[string]interface{}{
		"user_id":    user.ID,
		"role":       role,
		"created_by": caller.UserID,
	}).Info("user created")
	return user, nil
}

// Update changes a user. Super admin accounts and the super admin role are
// managed by super admins only.
func (s *UserService) Update(ctx context.Context, id int64, input UpdateUserInput) (*models.User, error) {
	caller, err := auth.Guard(ctx, auth.Admins...)
	if err != nil {
		return nil, err
	}
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, caller, id); err != nil {
		return nil, err
	}
	if input.Role != nil {
		if err := checkRoleGrant(caller, types.Role(*input.Role)); err != nil {
			return nil, err
		}
	}
	return s.store.Update(ctx, id, input.Values())
}

// ResetPin replaces a user's pin
func (s *UserService) ResetPin(ctx context.Context, id int64, input ResetPinInput) error {
	caller, err := auth.Guard(ctx, auth.Admins...)
	if err != nil {
		return err
	}
	if err := validateInput(&input); err != nil {
		return err
	}
	if err := s.checkTarget(ctx, caller, id); err != nil {
		return err
	}

	hash, err := auth.HashPin(input.Pin)
	if err != nil {
		return apperrors.NewInternalError("failed to hash pin", err)
	}
	return s.store.UpdatePinHash(ctx, id, hash)
}

// checkTarget loads the user being changed and stops admins from touching super admins
func (s *UserService) checkTarget(ctx context.Context, caller *auth.Identity, id int64) error {
	target, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == types.RoleSuperAdmin && caller.Role != types.RoleSuperAdmin {
		return apperrors.NewForbiddenError("only a super admin may change a super admin")
	}
	return nil
}

func checkRoleGrant(caller *auth.Identity, role types.Role) error {
	if role == types.RoleSuperAdmin && caller.Role != types.RoleSuperAdmin {
		return apperrors.NewForbiddenError("only a super admin may grant the super admin role")
	}
	return nil
}

func (s *UserService) accountValues(input RegisterInput, role types.Role, status types.UserStatus) (map[string]any, error) {
	hash, err := auth.HashPin(input.Pin)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash pin", err)
	}
	values := map[string]any{
		"name":           strings.TrimSpace(input.Name),
		"phone":          strings.TrimSpace(input.Phone),
		"pin_hash":       hash,
		"role":           string(role),
		"status":         string(status),
		"center_name":    strings.TrimSpace(input.CenterName),
		"center_address": strings.TrimSpace(input.CenterAddress),
	}
	if input.Email != nil {
		values["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	return values, nil
}
