package app

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"

	"quiz-arena/internal/auth"
	"quiz-arena/internal/domain"
	"quiz-arena/internal/platform/logger"

	"github.com/google/uuid"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// IdentityService registers users, manages passwords and issues tokens.
type IdentityService struct {
	users  UserRepository
	issuer *auth.Issuer
	hasher *auth.Hasher
	audit  AuditLog
	admins map[string]struct{}
	now    func() time.Time
	log    *logger.Logger
}

// NewIdentityService builds the service. Users registering with one of
// adminPhones get the admin flag.
func NewIdentityService(users UserRepository, issuer *auth.Issuer, hasher *auth.Hasher, audit AuditLog, adminPhones []string, log *logger.Logger) *IdentityService {
	admins := make(map[string]struct{}, len(adminPhones))
	for _, phone := range adminPhones {
		admins[normalizePhone(phone)] = struct{}{}
	}
	return &IdentityService{
		users:  users,
		issuer: issuer,
		hasher: hasher,
		audit:  audit,
		admins: admins,
		now:    time.Now,
		log:    log.With("service", "IdentityService"),
	}
}

// RegisterInput is the registration payload. Email and ProfileURL are optional.
type RegisterInput struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	ProfileURL string `json:"profileUrl"`
}

// Register creates a user without a password and returns a token for it.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (domain.User, auth.Token, error) {
	user, err := s.normalizeRegistration(in)
	if err != nil {
		return domain.User{}, auth.Token{}, err
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, auth.Token{}, err
	}
	s.log.Info("user registered", "user_id", user.ID)
	token, err := s.issue(ctx, user.ID)
	if err != nil {
		return domain.User{}, auth.Token{}, err
	}
	return user, token, nil
}

// Login verifies phone and password and issues a token.
func (s *IdentityService) Login(ctx context.Context, phone, password string) (domain.User, auth.Token, error) {
	user, err := s.users.GetUserByPhone(ctx, normalizePhone(phone))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, auth.Token{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, auth.Token{}, err
	}
	if !user.PasswordSet {
		return domain.User{}, auth.Token{}, domain.ErrPasswordNotSet
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return domain.User{}, auth.Token{}, domain.ErrInvalidCredentials
	}
	token, err := s.issue(ctx, user.ID)
	if err != nil {
		return domain.User{}, auth.Token{}, err
	}
	return user, token, nil
}

// SetPassword sets the caller's password. It succeeds once per user.
func (s *IdentityService) SetPassword(ctx context.Context, userID, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordHash(ctx, userID, hash, true); err != nil {
		return err
	}
	s.log.Info("password set", "user_id", userID)
	return nil
}

// AdminSetPassword overwrites another user's password.
func (s *IdentityService) AdminSetPassword(ctx context.Context, adminID, userID, password string) error {
	if _, err := s.RequireAdmin(ctx, adminID); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordHash(ctx, userID, hash, false); err != nil {
		return err
	}
	s.log.Warn("password overridden by admin", "user_id", userID, "admin_id", adminID)
	return nil
}

// Authenticate resolves an Authorization header to a user id.
func (s *IdentityService) Authenticate(header string) (string, error) {
	raw, err := auth.FromHeader(header)
	if err != nil {
		return "", err
	}
	return s.issuer.Verify(raw)
}

func (s *IdentityService) User(ctx context.Context, userID string) (domain.User, error) {
	return s.users.GetUser(ctx, userID)
}

// RequireAdmin loads userID and fails with domain.ErrForbidden unless it is an admin.
func (s *IdentityService) RequireAdmin(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, domain.ErrForbidden
		}
		return domain.User{}, err
	}
	if !user.IsAdmin {
		return domain.User{}, domain.ErrForbidden
	}
	return user, nil
}

func (s *IdentityService) issue(ctx context.Context, userID string) (auth.Token, error) {
	token, err := s.issuer.Issue(userID)
	if err != nil {
		return auth.Token{}, err
	}
	if s.audit != nil {
		// best-effort: the audit trail never gates authentication
		if err := s.audit.RecordToken(ctx, TokenRecord{
			TokenID:   token.ID,
			UserID:    userID,
			IssuedAt:  token.IssuedAt,
			ExpiresAt: token.ExpiresAt,
		}); err != nil {
			s.log.Warn("token audit failed", "user_id", userID, "error", err)
		}
	}
	return token, nil
}

func (s *IdentityService) normalizeRegistration(in RegisterInput) (domain.User, error) {
	user := domain.User{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		Phone:      normalizePhone(in.Phone),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		ProfileURL: strings.TrimSpace(in.ProfileURL),
		CreatedAt:  s.now().UTC(),
	}
	_, user.IsAdmin = s.admins[user.Phone]
	if user.Name == "" {
		return domain.User{}, domain.Invalid("name", "is required")
	}
	if !phonePattern.MatchString(user.Phone) {
		return domain.User{}, domain.Invalid("phone", "must be 7 to 15 digits")
	}
	if user.Email != "" {
		if _, err := mail.ParseAddress(user.Email); err != nil {
			return domain.User{}, domain.Invalid("email", "is not a valid address")
		}
	}
	if user.ProfileURL != "" {
		u, err := url.Parse(user.ProfileURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return domain.User{}, domain.Invalid("profileUrl", "must be an http(s) url")
		}
	}
	return user, nil
}

func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}
