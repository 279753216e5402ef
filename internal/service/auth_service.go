package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/config"
	"github.com/civicdesk/issue-reporter/internal/domain"
	"github.com/civicdesk/issue-reporter/internal/events"
	"github.com/civicdesk/issue-reporter/internal/observability"
	"github.com/civicdesk/issue-reporter/internal/repository"
	apperrors "github.com/civicdesk/issue-reporter/pkg/util"
)

// Session is the outcome of any successful first-factor authentication.
type Session struct {
	Principal *auth.Principal
	Tokens    domain.TokenPair
}

// RefreshedAccess is the result of exchanging a refresh token.
type RefreshedAccess struct {
	ID          string
	Role        domain.Role
	AccessToken string
	ExpiresAt   time.Time
}

// UserSignupInput carries citizen registration fields.
type UserSignupInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  domain.Address
}

// StaffRegisterInput carries field worker registration fields.
type StaffRegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	StaffID  string
}

// AdminCreateInput carries fields for a new administrator.
type AdminCreateInput struct {
	Name        string
	Email       string
	Password    string
	Phone       string
	Role        domain.Role
	Permissions domain.Permissions
}

// AuthService coordinates registration, login and session flows for all three principal kinds.
type AuthService struct {
	users       repository.UserRepository
	staff       repository.StaffRepository
	admins      repository.AdminRepository
	revocations repository.RevocationRepository
	tokens      *auth.TokenService
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	bcryptCost  int
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo       repository.UserRepository
	StaffRepo      repository.StaffRepository
	AdminRepo      repository.AdminRepository
	RevocationRepo repository.RevocationRepository
	Tokens         *auth.TokenService
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher(logger)
	}
	return &AuthService{
		users:       deps.UserRepo,
		staff:       deps.StaffRepo,
		admins:      deps.AdminRepo,
		revocations: deps.RevocationRepo,
		tokens:      deps.Tokens,
		dispatcher:  dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		bcryptCost:  cfg.BcryptCost,
	}
}

// SignupUser registers a citizen and starts a password session.
func (s *AuthService) SignupUser(ctx context.Context, in UserSignupInput) (*Session, error) {
	user, err := s.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.StartSession(ctx, &auth.Principal{ID: user.ID, Role: user.Role, User: user}, domain.AuthMethodPassword)
}

// CreateUser stores a citizen record. An empty password stores an unusable hash,
// leaving OTP as the only way in.
func (s *AuthService) CreateUser(ctx context.Context, in UserSignupInput) (*domain.User, error) {
	hash, err := s.hashOrUnusable(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        apperrors.NormalizeEmail(in.Email),
		Phone:        apperrors.NormalizePhone(in.Phone),
		Address:      in.Address,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.metrics.RecordAuthAttempt(string(domain.RoleUser), "signup", "rejected")
		return nil, mapRepoError(err, "User", "User not found")
	}

	s.publish(ctx, events.EventPrincipalRegistered, user.ID, user.Role, nil)
	s.metrics.RecordAuthAttempt(string(domain.RoleUser), "signup", "success")
	return user, nil
}

// LoginUser authenticates a citizen by email or phone.
func (s *AuthService) LoginUser(ctx context.Context, identifier, password string) (*Session, error) {
	user, err := s.users.FindByIdentifier(ctx, apperrors.NormalizeIdentifier(identifier))
	if err != nil {
		s.recordLogin(domain.RoleUser, domain.AuthMethodPassword, err)
		return nil, mapRepoError(err, "User", "User not found")
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		s.recordLogin(domain.RoleUser, domain.AuthMethodPassword, apperrors.NewInvalidCredentials())
		return nil, apperrors.NewInvalidCredentials()
	}
	return s.StartSession(ctx, &auth.Principal{ID: user.ID, Role: user.Role, User: user}, domain.AuthMethodPassword)
}

// RegisterStaff records a field worker awaiting admin approval. No session is issued.
func (s *AuthService) RegisterStaff(ctx context.Context, in StaffRegisterInput) (*domain.Staff, error) {
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	staff := &domain.Staff{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        apperrors.NormalizeEmail(in.Email),
		Phone:        apperrors.NormalizePhone(in.Phone),
		StaffID:      strings.TrimSpace(in.StaffID),
		PasswordHash: hash,
		Role:         domain.RoleStaff,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, mapRepoError(err, "Staff", "Staff not found")
	}

	s.publish(ctx, events.EventPrincipalRegistered, staff.ID, staff.Role, nil)
	s.metrics.RecordAuthAttempt(string(domain.RoleStaff), "signup", "success")
	return staff, nil
}

// LoginStaff authenticates an approved field worker by email or staff id.
func (s *AuthService) LoginStaff(ctx context.Context, identifier, password string) (*Session, error) {
	staff, err := s.staff.FindByIdentifier(ctx, apperrors.NormalizeIdentifier(identifier))
	if err != nil {
		s.recordLogin(domain.RoleStaff, domain.AuthMethodPassword, err)
		return nil, mapRepoError(err, "Staff", "Staff not found")
	}
	if !auth.VerifyPassword(staff.PasswordHash, password) {
		s.recordLogin(domain.RoleStaff, domain.AuthMethodPassword, apperrors.NewInvalidCredentials())
		return nil, apperrors.NewInvalidCredentials()
	}
	if err := checkStaffApproved(staff); err != nil {
		s.recordLogin(domain.RoleStaff, domain.AuthMethodPassword, err)
		return nil, err
	}
	return s.StartSession(ctx, &auth.Principal{ID: staff.ID, Role: staff.Role, Staff: staff}, domain.AuthMethodPassword)
}

// LoginAdmin authenticates an administrator by email or phone.
func (s *AuthService) LoginAdmin(ctx context.Context, identifier, password string) (*Session, error) {
	admin, err := s.admins.FindByIdentifier(ctx, apperrors.NormalizeIdentifier(identifier))
	if err != nil {
		s.recordLogin(domain.RoleAdmin, domain.AuthMethodPassword, err)
		return nil, mapRepoError(err, "Admin", "Admin not found")
	}
	if !auth.VerifyPassword(admin.PasswordHash, password) {
		s.recordLogin(admin.Role, domain.AuthMethodPassword, apperrors.NewInvalidCredentials())
		return nil, apperrors.NewInvalidCredentials()
	}
	if err := checkAdminActive(admin); err != nil {
		s.recordLogin(admin.Role, domain.AuthMethodPassword, err)
		return nil, err
	}
	return s.StartSession(ctx, &auth.Principal{ID: admin.ID, Role: admin.Role, Admin: admin}, domain.AuthMethodPassword)
}

// StartSession mints a token pair for an authenticated principal. Password and OTP
// logins both end here.
func (s *AuthService) StartSession(ctx context.Context, principal *auth.Principal, method domain.AuthMethod) (*Session, error) {
	pair, err := s.tokens.IssueTokenPair(principal.ID, principal.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if principal.Admin != nil {
		if err := s.admins.TouchLastLogin(ctx, principal.ID); err != nil {
			s.logger.Warn("failed to stamp admin last login", zap.String("admin_id", principal.ID), zap.Error(err))
		} else {
			now := time.Now().UTC()
			principal.Admin.LastLoginAt = &now
		}
	}

	s.publish(ctx, events.EventPrincipalLoggedIn, principal.ID, principal.Role, events.LoginPayload{Method: method})
	s.metrics.RecordAuthAttempt(string(principal.Role), string(method), "success")
	return &Session{Principal: principal, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new access token with the same claims.
// The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshedAccess, error) {
	if refreshToken == "" {
		return nil, apperrors.NewUnauthorized("Unauthorized: no refresh token")
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.logger.Debug("refresh token rejected", zap.Error(err))
		s.metrics.RecordAuthAttempt("unknown", string(domain.AuthMethodRefresh), "invalid")
		return nil, apperrors.NewUnauthorized("Unauthorized: invalid or expired refresh token")
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.RegisteredClaims.ID)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if revoked {
			s.metrics.RecordAuthAttempt(string(claims.Role), string(domain.AuthMethodRefresh), "revoked")
			return nil, apperrors.NewUnauthorized("Unauthorized: refresh token revoked")
		}
	}

	access, exp, err := s.tokens.IssueAccessToken(claims.ID, claims.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventSessionRefreshed, claims.ID, claims.Role, nil)
	s.metrics.RecordAuthAttempt(string(claims.Role), string(domain.AuthMethodRefresh), "success")
	return &RefreshedAccess{ID: claims.ID, Role: claims.Role, AccessToken: access, ExpiresAt: exp}, nil
}

// Logout deny-lists the refresh token until it would have expired anyway. Unparseable
// or already expired tokens need no entry.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" || s.revocations == nil {
		return nil
	}
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.RegisteredClaims.ID, claims.ExpiresAt.Time); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.publish(ctx, events.EventSessionRevoked, claims.ID, claims.Role, nil)
	return nil
}

// ApproveStaff marks a pending field worker as approved.
func (s *AuthService) ApproveStaff(ctx context.Context, actor *auth.Principal, staffID string) (*domain.Staff, error) {
	if err := auth.Check(actor, auth.RequirePermission(domain.PermManageStaff)); err != nil {
		return nil, err
	}

	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, mapRepoError(err, "Staff", "Staff not found")
	}
	if staff.Approved {
		return staff, nil
	}
	staff.Approved = true
	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, mapRepoError(err, "Staff", "Staff not found")
	}

	s.publish(ctx, events.EventStaffApproved, staff.ID, staff.Role,
		events.StaffApprovedPayload{StaffID: staff.StaffID, ApprovedBy: actor.ID})
	return staff, nil
}

// ListStaff returns field workers matching the filter.
func (s *AuthService) ListStaff(ctx context.Context, filter repository.StaffFilter) ([]domain.Staff, error) {
	list, err := s.staff.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return list, nil
}

// CreateAdmin provisions an administrator. Only superadmins may mint other superadmins.
func (s *AuthService) CreateAdmin(ctx context.Context, actor *auth.Principal, in AdminCreateInput) (*domain.Admin, error) {
	if err := auth.Check(actor, auth.RequirePermission(domain.PermManageAdmins)); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = domain.RoleAdmin
	}
	if !role.IsAdmin() {
		return nil, apperrors.NewValidationError("role must be admin or superadmin", map[string]any{"field": "role"})
	}
	if role == domain.RoleSuperAdmin && actor.Role != domain.RoleSuperAdmin {
		return nil, apperrors.NewForbidden("Access denied: only a superadmin can create a superadmin")
	}
	return s.createAdmin(ctx, in, role)
}

// EnsureBootstrapAdmin creates the configured superadmin if it does not exist yet.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}
	_, err := s.admins.FindByIdentifier(ctx, apperrors.NormalizeEmail(cfg.AdminEmail))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	perms := domain.DefaultPermissions()
	perms[domain.PermManageAdmins] = true
	admin, err := s.createAdmin(ctx, AdminCreateInput{
		Name:        cfg.AdminName,
		Email:       cfg.AdminEmail,
		Password:    cfg.AdminPassword,
		Permissions: perms,
	}, domain.RoleSuperAdmin)
	if err != nil {
		return false, err
	}
	s.logger.Info("bootstrap superadmin created", zap.String("admin_id", admin.ID), zap.String("email", admin.Email))
	return true, nil
}

func (s *AuthService) createAdmin(ctx context.Context, in AdminCreateInput, role domain.Role) (*domain.Admin, error) {
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	perms := domain.DefaultPermissions()
	for flag, granted := range in.Permissions {
		perms[flag] = granted
	}

	admin := &domain.Admin{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        apperrors.NormalizeEmail(in.Email),
		Phone:        apperrors.NormalizePhone(in.Phone),
		PasswordHash: hash,
		Role:         role,
		Permissions:  perms,
		Active:       true,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, mapRepoError(err, "Admin", "Admin not found")
	}
	s.publish(ctx, events.EventPrincipalRegistered, admin.ID, admin.Role, nil)
	return admin, nil
}

func (s *AuthService) hashOrUnusable(password string) (string, error) {
	if password != "" {
		return auth.HashPassword(password, s.bcryptCost)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return auth.HashPassword(hex.EncodeToString(buf), s.bcryptCost)
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, id string, role domain.Role, payload any) {
	_ = s.dispatcher.Publish(ctx, events.New(eventType, events.Actor{ID: id, Role: role}, payload))
}

func (s *AuthService) recordLogin(role domain.Role, method domain.AuthMethod, err error) {
	outcome := "error"
	switch {
	case errors.Is(err, repository.ErrNotFound), apperrors.IsCode(err, apperrors.CodeNotFound):
		outcome = "not_found"
	case apperrors.IsCode(err, apperrors.CodeInvalidLogin), apperrors.IsCode(err, apperrors.CodeInvalidOtp):
		outcome = "invalid"
	case apperrors.IsCode(err, apperrors.CodeForbidden):
		outcome = "forbidden"
	}
	s.metrics.RecordAuthAttempt(string(role), string(method), outcome)
}

func checkStaffApproved(staff *domain.Staff) error {
	if !staff.Approved {
		return apperrors.NewForbidden("Staff account pending approval")
	}
	return nil
}

func checkAdminActive(admin *domain.Admin) error {
	if !admin.Active {
		return apperrors.NewForbidden("Admin account is disabled")
	}
	return nil
}

// mapRepoError converts repository sentinels to the public error taxonomy.
func mapRepoError(err error, kind, notFound string) error {
	var conflict *repository.ConflictError
	switch {
	case errors.As(err, &conflict):
		field := conflict.Field
		if field == "" {
			field = "identifier"
		}
		return apperrors.NewConflict(kind+" already exists with this "+field, map[string]any{"field": field})
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict(kind+" already exists", nil)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(notFound)
	default:
		return apperrors.NewInternalError(err)
	}
}
