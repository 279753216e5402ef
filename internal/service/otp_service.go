package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/config"
	"github.com/civicdesk/issue-reporter/internal/domain"
	"github.com/civicdesk/issue-reporter/internal/events"
	"github.com/civicdesk/issue-reporter/internal/notify"
	"github.com/civicdesk/issue-reporter/internal/observability"
	"github.com/civicdesk/issue-reporter/internal/repository"
	apperrors "github.com/civicdesk/issue-reporter/pkg/util"
)

// OTPService issues and redeems one-time codes as an alternative first factor.
type OTPService struct {
	otps       repository.OTPRepository
	users      repository.UserRepository
	staff      repository.StaffRepository
	admins     repository.AdminRepository
	delivery   notify.OTPDelivery
	sessions   *AuthService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.OTPConfig
	now        func() time.Time
}

// OTPDependencies encapsulates collaborators for the OTP service.
type OTPDependencies struct {
	OTPRepo    repository.OTPRepository
	UserRepo   repository.UserRepository
	StaffRepo  repository.StaffRepository
	AdminRepo  repository.AdminRepository
	Delivery   notify.OTPDelivery
	Sessions   *AuthService
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewOTPService builds the service.
func NewOTPService(cfg config.OTPConfig, deps OTPDependencies) *OTPService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher(logger)
	}
	return &OTPService{
		otps:       deps.OTPRepo,
		users:      deps.UserRepo,
		staff:      deps.StaffRepo,
		admins:     deps.AdminRepo,
		delivery:   deps.Delivery,
		sessions:   deps.Sessions,
		dispatcher: dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// WithClock returns a copy reading time from now.
func (s *OTPService) WithClock(now func() time.Time) *OTPService {
	clone := *s
	clone.now = now
	return &clone
}

// RequestOtp generates a code for (identifier, purpose), replacing any earlier one, and
// delivers it. Signup codes require an unregistered identifier; login codes a registered one.
func (s *OTPService) RequestOtp(ctx context.Context, identifier string, role domain.Role, purpose domain.OTPPurpose) error {
	contact, err := normalizeContact(identifier)
	if err != nil {
		return err
	}
	if role == "" {
		role = domain.RoleUser
	}

	switch purpose {
	case domain.OTPPurposeSignup:
		if role != domain.RoleUser {
			return apperrors.NewValidationError("OTP signup is only available for users", map[string]any{"field": "userType"})
		}
		if _, err := s.users.FindByIdentifier(ctx, contact); err == nil {
			return apperrors.NewConflict("User already exists with this identifier", map[string]any{"field": "identifier"})
		} else if !errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewInternalError(err)
		}
	case domain.OTPPurposeLogin:
		if _, err := s.findPrincipal(ctx, role, contact); err != nil {
			return err
		}
	default:
		return apperrors.NewValidationError("purpose must be signup or login", map[string]any{"field": "purpose"})
	}

	code, err := generateCode(s.cfg.Length)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	expiresAt := s.now().Add(s.cfg.TTL())
	record := &domain.OTPRecord{
		Identifier: contact,
		Purpose:    purpose,
		Role:       role,
		CodeHash:   hashCode(contact, purpose, code),
		ExpiresAt:  expiresAt,
	}
	if err := s.otps.Save(ctx, record, s.cfg.Retention()); err != nil {
		return apperrors.NewInternalError(err)
	}

	channel, err := s.delivery.DeliverOTP(ctx, contact, code, purpose, s.cfg.TTL())
	if err != nil {
		s.logger.Error("otp delivery failed", zap.String("channel", string(channel)), zap.Error(err))
		return apperrors.NewInternalError(err)
	}

	s.metrics.RecordOTPIssued(string(channel), string(purpose))
	_ = s.dispatcher.Publish(ctx, events.New(events.EventOTPIssued, events.Actor{Role: role}, events.OTPIssuedPayload{
		Identifier: contact,
		Purpose:    purpose,
		Channel:    channel,
		ExpiresAt:  expiresAt,
	}))
	return nil
}

// ResendOtp issues a fresh code like RequestOtp. An empty role reuses the role the
// outstanding code was issued for. There is no server-side cool-down.
func (s *OTPService) ResendOtp(ctx context.Context, identifier string, role domain.Role, purpose domain.OTPPurpose) error {
	if role == "" {
		if contact, err := normalizeContact(identifier); err == nil {
			record, err := s.otps.Get(ctx, contact, purpose)
			switch {
			case err == nil:
				role = record.Role
			case !errors.Is(err, repository.ErrNotFound):
				return apperrors.NewInternalError(err)
			}
		}
	}
	return s.RequestOtp(ctx, identifier, role, purpose)
}

// VerifyOtp consumes the code. On success a short-lived verified marker lets the same
// code complete a follow-up signup or login call.
func (s *OTPService) VerifyOtp(ctx context.Context, identifier, code string, purpose domain.OTPPurpose) error {
	contact, err := normalizeContact(identifier)
	if err != nil {
		return err
	}
	verdict, err := s.consume(ctx, contact, code, purpose)
	if err != nil {
		return err
	}
	if verdict != domain.OTPAccepted {
		return otpError(verdict)
	}
	if err := s.otps.MarkVerified(ctx, contact, purpose, s.cfg.VerifiedTTL()); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// LoginWithOtp redeems a login code for the given role and starts a session.
func (s *OTPService) LoginWithOtp(ctx context.Context, role domain.Role, identifier, code string) (*Session, error) {
	contact, err := normalizeContact(identifier)
	if err != nil {
		return nil, err
	}
	principal, err := s.findPrincipal(ctx, role, contact)
	if err != nil {
		return nil, err
	}
	switch {
	case principal.Staff != nil:
		if err := checkStaffApproved(principal.Staff); err != nil {
			return nil, err
		}
	case principal.Admin != nil:
		if err := checkAdminActive(principal.Admin); err != nil {
			return nil, err
		}
	}
	if err := s.redeem(ctx, contact, code, domain.OTPPurposeLogin); err != nil {
		s.sessions.recordLogin(role, domain.AuthMethodOTP, err)
		return nil, err
	}
	return s.sessions.StartSession(ctx, principal, domain.AuthMethodOTP)
}

// SignupUserWithOtp redeems a signup code sent to the user's email or phone and
// registers the account. identifier defaults to the email.
func (s *OTPService) SignupUserWithOtp(ctx context.Context, in UserSignupInput, identifier, code string) (*Session, error) {
	if strings.TrimSpace(identifier) == "" {
		identifier = in.Email
	}
	contact, err := normalizeContact(identifier)
	if err != nil {
		return nil, err
	}
	if contact != apperrors.NormalizeEmail(in.Email) && contact != apperrors.NormalizePhone(in.Phone) {
		return nil, apperrors.NewValidationError("identifier must match the email or phone being registered",
			map[string]any{"field": "identifier"})
	}
	if err := s.ensureUserAvailable(ctx, in); err != nil {
		return nil, err
	}
	if err := s.redeem(ctx, contact, code, domain.OTPPurposeSignup); err != nil {
		return nil, err
	}

	user, err := s.sessions.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.sessions.StartSession(ctx, &auth.Principal{ID: user.ID, Role: user.Role, User: user}, domain.AuthMethodOTP)
}

// ensureUserAvailable reports a conflict on the email or phone before a signup code is spent.
func (s *OTPService) ensureUserAvailable(ctx context.Context, in UserSignupInput) error {
	checks := []struct{ field, value string }{
		{"email", apperrors.NormalizeEmail(in.Email)},
		{"phone", apperrors.NormalizePhone(in.Phone)},
	}
	for _, check := range checks {
		if check.value == "" {
			continue
		}
		_, err := s.users.FindByIdentifier(ctx, check.value)
		if err == nil {
			return apperrors.NewConflict("User already exists with this "+check.field, map[string]any{"field": check.field})
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewInternalError(err)
		}
	}
	return nil
}

// redeem accepts a live code, or a code already consumed by VerifyOtp while its
// verified marker is still outstanding.
func (s *OTPService) redeem(ctx context.Context, contact, code string, purpose domain.OTPPurpose) error {
	verdict, err := s.consume(ctx, contact, code, purpose)
	if err != nil {
		return err
	}
	switch verdict {
	case domain.OTPAccepted:
		return nil
	case domain.OTPConsumed:
		ok, err := s.otps.TakeVerified(ctx, contact, purpose)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if ok {
			return nil
		}
	}
	return otpError(verdict)
}

func (s *OTPService) consume(ctx context.Context, contact, code string, purpose domain.OTPPurpose) (domain.OTPVerdict, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.OTPNotFound, apperrors.NewValidationError("otp is required", map[string]any{"field": "otp"})
	}
	verdict, err := s.otps.Consume(ctx, contact, purpose, hashCode(contact, purpose, code), s.now(), s.cfg.MaxAttempts)
	if err != nil {
		return domain.OTPNotFound, apperrors.NewInternalError(err)
	}
	s.metrics.RecordOTPVerification(string(purpose), verdict.String())
	return verdict, nil
}

// findPrincipal resolves contact in the single store owning role.
func (s *OTPService) findPrincipal(ctx context.Context, role domain.Role, contact string) (*auth.Principal, error) {
	switch role.Kind() {
	case domain.KindUser:
		user, err := s.users.FindByIdentifier(ctx, contact)
		if err != nil {
			return nil, mapRepoError(err, "User", "User not found")
		}
		return &auth.Principal{ID: user.ID, Role: user.Role, User: user}, nil
	case domain.KindStaff:
		staff, err := s.staff.FindByIdentifier(ctx, contact)
		if err != nil {
			return nil, mapRepoError(err, "Staff", "Staff not found")
		}
		return &auth.Principal{ID: staff.ID, Role: staff.Role, Staff: staff}, nil
	case domain.KindAdmin:
		admin, err := s.admins.FindByIdentifier(ctx, contact)
		if err != nil {
			return nil, mapRepoError(err, "Admin", "Admin not found")
		}
		return &auth.Principal{ID: admin.ID, Role: admin.Role, Admin: admin}, nil
	default:
		return nil, apperrors.NewValidationError("userType must be user, staff or admin", map[string]any{"field": "userType"})
	}
}

func otpError(verdict domain.OTPVerdict) error {
	switch verdict {
	case domain.OTPConsumed:
		return apperrors.NewInvalidOtp("OTP already used")
	case domain.OTPExpired:
		return apperrors.NewInvalidOtp("OTP expired")
	case domain.OTPLocked:
		return apperrors.NewInvalidOtp("Too many incorrect attempts; request a new OTP")
	default:
		return apperrors.NewInvalidOtp("Invalid OTP")
	}
}

// normalizeContact accepts an email or a phone number, the two deliverable identifiers.
func normalizeContact(identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		if !apperrors.IsValidEmail(identifier) {
			return "", apperrors.NewValidationError("identifier must be a valid email or phone", map[string]any{"field": "identifier"})
		}
		return apperrors.NormalizeEmail(identifier), nil
	}
	if !apperrors.IsValidPhone(identifier) {
		return "", apperrors.NewValidationError("identifier must be a valid email or phone", map[string]any{"field": "identifier"})
	}
	return apperrors.NormalizePhone(identifier), nil
}

func generateCode(length int) (string, error) {
	ten := big.NewInt(10)
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// hashCode binds the code to its identifier and purpose so stored hashes are not reusable.
func hashCode(contact string, purpose domain.OTPPurpose, code string) string {
	sum := sha256.Sum256([]byte(string(purpose) + "|" + contact + "|" + code))
	return hex.EncodeToString(sum[:])
}
