package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"workoutauth/internal/domain"
	"workoutauth/internal/events"
	"workoutauth/internal/pkg/jwt"
	"workoutauth/internal/pkg/logging"
	"workoutauth/internal/pkg/password"
	"workoutauth/internal/pkg/validator"

	"github.com/google/uuid"
)

const (
	defaultRole          = domain.RoleAthlete
	defaultLanguage      = "en"
	defaultTimeZone      = "UTC"
	maxStaleRetries      = 3
	eventPublishTimeout  = 2 * time.Second
	defaultLockoutLimit  = 5
	defaultLockoutPeriod = 15 * time.Minute
)

type Options struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	RefreshTTL       time.Duration
	StorageTimeout   time.Duration
	EmailTimeout     time.Duration
	ResetBaseURL     string
}

func DefaultOptions() Options {
	return Options{
		LockoutThreshold: defaultLockoutLimit,
		LockoutDuration:  defaultLockoutPeriod,
		RefreshTTL:       7 * 24 * time.Hour,
		StorageTimeout:   5 * time.Second,
		EmailTimeout:     10 * time.Second,
		ResetBaseURL:     "http://localhost:5173",
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.LockoutThreshold <= 0 {
		o.LockoutThreshold = def.LockoutThreshold
	}
	o.LockoutThreshold = min(o.LockoutThreshold, domain.MaxAccessFailedCount)
	if o.LockoutDuration <= 0 {
		o.LockoutDuration = def.LockoutDuration
	}
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = def.RefreshTTL
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = def.StorageTimeout
	}
	if o.EmailTimeout <= 0 {
		o.EmailTimeout = def.EmailTimeout
	}
	if strings.TrimSpace(o.ResetBaseURL) == "" {
		o.ResetBaseURL = def.ResetBaseURL
	}
	o.ResetBaseURL = strings.TrimRight(o.ResetBaseURL, "/")
	return o
}

// Service runs the login, registration, refresh, logout and password reset
// flows. It keeps no state between calls.
type Service struct {
	store  domain.AuthStore
	tokens TokenService
	hasher password.Hasher
	mailer EmailSender
	events events.Publisher
	opts   Options
	now    func() time.Time
}

func NewService(
	store domain.AuthStore,
	tokens TokenService,
	hasher password.Hasher,
	mailer EmailSender,
	publisher events.Publisher,
	opts Options,
) *Service {
	if mailer == nil {
		mailer = NewDevConsoleMailer(false, nil)
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		store:  store,
		tokens: tokens,
		hasher: hasher,
		mailer: mailer,
		events: publisher,
		opts:   opts.withDefaults(),
		now:    time.Now,
	}
}

// WithClock returns a copy of the service reading time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Service) Login(ctx context.Context, req LoginRequest, meta RequestMeta) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	user, err := s.store.Users().FindByUsernameOrEmail(ctx, req.Username)
	if errors.Is(err, domain.ErrNotFound) {
		s.publish(ctx, newEvent(events.LoginFailed, "", meta, "reason", "unknown_user"))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storageErr(err)
	}

	now := s.now()
	if user.IsLockedOut(now) {
		s.publish(ctx, newEvent(events.LoginFailed, user.ID, meta, "reason", "locked_out"))
		return nil, ErrInvalidCredentials
	}

	if !s.verifyPassword(ctx, user, req.Password) {
		return nil, s.loginFailed(ctx, user, now, meta)
	}
	return s.completeLogin(ctx, user, meta)
}

func (s *Service) verifyPassword(ctx context.Context, user *domain.User, plain string) bool {
	ok, err := s.hasher.Verify(plain, user.PasswordHash)
	if err != nil {
		logging.FromContext(ctx).Warn("stored password hash could not be checked", "user_id", user.ID, "error", err)
		return false
	}
	return ok
}

// loginFailed persists the failed attempt and reports the generic credentials
// error, whether or not this attempt opened a lockout window.
func (s *Service) loginFailed(ctx context.Context, user *domain.User, now time.Time, meta RequestMeta) error {
	users := s.store.Users()
	var locked bool
	saved, err := saveWithRetry(ctx, users, user,
		func(ctx context.Context) (*domain.User, error) { return users.FindByID(ctx, user.ID) },
		func(u *domain.User) error {
			locked = u.RegisterFailedAttempt(now, s.opts.LockoutThreshold, s.opts.LockoutDuration)
			return nil
		})
	if errors.Is(err, domain.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return storageErr(err)
	}

	s.publish(ctx, newEvent(events.LoginFailed, saved.ID, meta,
		"reason", "bad_password",
		"attempts", strconv.Itoa(saved.AccessFailedCount)))
	if locked {
		logging.FromContext(ctx).Warn("account locked out",
			"user_id", saved.ID, "attempts", saved.AccessFailedCount, "until", saved.LockoutEnd)
		s.publish(ctx, newEvent(events.AccountLocked, saved.ID, meta))
	}
	return ErrInvalidCredentials
}

// completeLogin clears the lockout state and issues a tracked token pair in
// one transaction. No tokens are returned unless the ledger row is committed.
func (s *Service) completeLogin(ctx context.Context, user *domain.User, meta RequestMeta) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	now := s.now().UTC()
	var result *LoginResult
	err := s.store.Transaction(ctx, func(tx domain.AuthStore) error {
		users := tx.Users()
		saved, err := saveWithRetry(ctx, users, user,
			func(ctx context.Context) (*domain.User, error) { return users.FindByID(ctx, user.ID) },
			func(u *domain.User) error {
				// a concurrent failed attempt may have locked the row we reloaded
				if u.IsLockedOut(now) {
					return ErrInvalidCredentials
				}
				u.ResetLockout()
				u.LastLoginAt = &now
				return nil
			})
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		result, err = s.issueSession(ctx, tx.Tokens(), saved)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}

	s.publish(ctx, newEvent(events.LoginSucceeded, user.ID, meta))
	return result, nil
}

func (s *Service) issueSession(ctx context.Context, ledger domain.RefreshTokenLedger, user *domain.User) (*LoginResult, error) {
	access, jti, refresh, err := s.mintPair(user)
	if err != nil {
		return nil, err
	}
	if _, err := ledger.Issue(ctx, user.ID, refresh, jti, s.opts.RefreshTTL); err != nil {
		return nil, storageErr(err)
	}
	return s.result(user, access, refresh), nil
}

func (s *Service) mintPair(user *domain.User) (access, jti, refresh string, err error) {
	roles, perms := AggregateAccess(user.UserRoles)
	access, err = s.tokens.IssueAccessToken(jwt.Identity{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, roles, perms)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %v", ErrTokenIssue, err)
	}
	jti, ok := s.tokens.ExtractTokenID(access)
	if !ok {
		return "", "", "", fmt.Errorf("%w: access token carries no id", ErrTokenIssue)
	}
	refresh, err = s.tokens.IssueRefreshToken()
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %v", ErrTokenIssue, err)
	}
	return access, jti, refresh, nil
}

func (s *Service) result(user *domain.User, access, refresh string) *LoginResult {
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    s.tokens.ExpiresInSeconds(),
		User:         toUserPublic(user),
	}
}

// Register creates an account with one role and signs it in. Username, email
// and role problems are reported as distinct errors.
func (s *Service) Register(ctx context.Context, req RegisterRequest, meta RequestMeta) (*LoginResult, error) {
	if !validator.StrongPassword(req.Password) {
		return nil, ErrWeakPassword
	}
	roleName := strings.TrimSpace(req.Role)
	if roleName == "" {
		roleName = defaultRole
	}

	user, err := s.createAccount(ctx, req, roleName)
	if err != nil {
		return nil, err
	}

	s.sendWelcome(ctx, user)
	s.publish(ctx, newEvent(events.Registered, user.ID, meta, "role", roleName))

	created, err := s.reloadUser(ctx, user.ID)
	if err != nil {
		return nil, storageErr(err)
	}
	return s.completeLogin(ctx, created, meta)
}

func (s *Service) reloadUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	return s.store.Users().FindByID(ctx, id)
}

func (s *Service) createAccount(ctx context.Context, req RegisterRequest, roleName string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	users := s.store.Users()
	taken, err := users.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, storageErr(err)
	}
	if taken {
		return nil, ErrDuplicateUsername
	}
	taken, err = users.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, storageErr(err)
	}
	if taken {
		return nil, ErrDuplicateEmail
	}
	role, err := s.store.Roles().FindActiveByName(ctx, roleName)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidRole
	}
	if err != nil {
		return nil, storageErr(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:       strings.TrimSpace(req.Username),
		Email:          strings.TrimSpace(req.Email),
		PasswordHash:   hash,
		SecurityStamp:  uuid.NewString(),
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		PhoneNumber:    req.PhoneNumber,
		LockoutEnabled: true,
		IsActive:       true,
		TimeZone:       defaultTimeZone,
		Language:       defaultLanguage,
	}
	err = s.store.Transaction(ctx, func(tx domain.AuthStore) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Users().AssignRole(ctx, user.ID, role.ID, nil)
	})
	if errors.Is(err, domain.ErrConflict) {
		// Lost a race with a concurrent registration.
		if taken, _ := s.store.Users().UsernameExists(ctx, req.Username); taken {
			return nil, ErrDuplicateUsername
		}
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return user, nil
}

func (s *Service) sendWelcome(ctx context.Context, user *domain.User) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.EmailTimeout)
	defer cancel()
	if err := s.mailer.SendWelcome(ctx, user.Email, user.FirstName); err != nil {
		logging.FromContext(ctx).Warn("welcome email not sent", "user_id", user.ID, "error", err)
	}
}

// Refresh trades a refresh token and its (usually expired) access token for a
// new pair. The presented refresh token is consumed exactly once.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest, meta RequestMeta) (*LoginResult, error) {
	claims, err := s.tokens.Validate(req.AccessToken, jwt.ValidationOptions{CheckExpiry: false})
	if err != nil || claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	ledger := s.store.Tokens()
	stored, err := ledger.FindByToken(ctx, req.RefreshToken)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, storageErr(err)
	}
	if stored.UserID != claims.Subject || stored.JwtID != claims.ID || !stored.Usable(s.now()) {
		if stored.IsUsed {
			logging.FromContext(ctx).Warn("used refresh token presented again", "user_id", stored.UserID, "token_id", stored.ID)
		}
		return nil, ErrInvalidOrExpiredToken
	}

	user, err := s.store.Users().FindByID(ctx, stored.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrAccountInactive
	}
	if err != nil {
		return nil, storageErr(err)
	}

	access, jti, refresh, err := s.mintPair(user)
	if err != nil {
		return nil, err
	}
	replacement := &domain.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		JwtID:     jti,
		ExpiresAt: s.now().UTC().Add(s.opts.RefreshTTL),
	}
	if _, err := ledger.Consume(ctx, req.RefreshToken, claims.ID, replacement); err != nil {
		if errors.Is(err, domain.ErrTokenUnavailable) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, storageErr(err)
	}

	s.publish(ctx, newEvent(events.TokenRefreshed, user.ID, meta))
	return s.result(user, access, refresh), nil
}

// Logout revokes one refresh token owned by userID. It returns false when the
// token is unknown, belongs to someone else or was already revoked.
func (s *Service) Logout(ctx context.Context, userID, refreshToken string, meta RequestMeta) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	ledger := s.store.Tokens()
	stored, err := ledger.FindByToken(ctx, refreshToken)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageErr(err)
	}
	if stored.UserID != userID {
		return false, nil
	}

	revoked, err := ledger.Revoke(ctx, refreshToken, meta.IP)
	if err != nil {
		return false, storageErr(err)
	}
	if revoked {
		s.publish(ctx, newEvent(events.Logout, userID, meta))
	}
	return revoked, nil
}

// LogoutAll revokes every outstanding refresh token of userID.
func (s *Service) LogoutAll(ctx context.Context, userID string, meta RequestMeta) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	n, err := s.store.Tokens().RevokeAllForUser(ctx, userID, meta.IP)
	if err != nil {
		return 0, storageErr(err)
	}
	s.publish(ctx, newEvent(events.LogoutAll, userID, meta, "revoked", strconv.FormatInt(n, 10)))
	return n, nil
}

// ForgotPassword rotates the security stamp and mails a reset link built from
// it. Unknown addresses succeed silently with an empty link.
func (s *Service) ForgotPassword(ctx context.Context, email string, meta RequestMeta) (string, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	users := s.store.Users()
	user, err := users.FindByEmail(storeCtx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storageErr(err)
	}

	saved, err := saveWithRetry(storeCtx, users, user,
		func(ctx context.Context) (*domain.User, error) { return users.FindByID(ctx, user.ID) },
		func(u *domain.User) error {
			u.SecurityStamp = uuid.NewString()
			return nil
		})
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storageErr(err)
	}

	link := s.resetLink(saved.Email, saved.SecurityStamp)

	mailCtx, cancelMail := context.WithTimeout(ctx, s.opts.EmailTimeout)
	defer cancelMail()
	if err := s.mailer.SendPasswordReset(mailCtx, saved.Email, link, saved.FirstName); err != nil {
		logging.FromContext(ctx).Warn("password reset email not sent", "user_id", saved.ID, "error", err)
	}

	s.publish(ctx, newEvent(events.PasswordResetRequested, saved.ID, meta))
	return link, nil
}

func (s *Service) resetLink(email, stamp string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", stamp)
	return s.opts.ResetBaseURL + "/reset-password?" + q.Encode()
}

// ResetPassword sets a new password when email and reset token match. The
// token works once; every refresh token of the user is revoked.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest, meta RequestMeta) error {
	if !validator.StrongPassword(req.NewPassword) {
		return ErrWeakPassword
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	user, err := s.store.Users().FindByEmailAndStamp(ctx, req.Email, req.Token)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return storageErr(err)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var revoked int64
	err = s.store.Transaction(ctx, func(tx domain.AuthStore) error {
		users := tx.Users()
		saved, err := saveWithRetry(ctx, users, user,
			func(ctx context.Context) (*domain.User, error) {
				return users.FindByEmailAndStamp(ctx, req.Email, req.Token)
			},
			func(u *domain.User) error {
				u.PasswordHash = hash
				u.SecurityStamp = uuid.NewString()
				u.ResetLockout()
				return nil
			})
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidResetToken
		}
		if err != nil {
			return err
		}
		revoked, err = tx.Tokens().RevokeAllForUser(ctx, saved.ID, meta.IP)
		return err
	})
	if err != nil {
		return classify(err)
	}

	s.publish(ctx, newEvent(events.PasswordReset, user.ID, meta, "revoked", strconv.FormatInt(revoked, 10)))
	return nil
}

// GetCurrentUser returns the profile of an active account.
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*UserPublic, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	user, err := s.store.Users().FindByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrAccountInactive
	}
	if err != nil {
		return nil, storageErr(err)
	}
	out := toUserPublic(user)
	return &out, nil
}

// saveWithRetry applies mutate and saves, reloading through reload and
// reapplying mutate when the row changed underneath. A mutate error aborts
// without saving.
func saveWithRetry(
	ctx context.Context,
	users domain.UserStore,
	u *domain.User,
	reload func(context.Context) (*domain.User, error),
	mutate func(*domain.User) error,
) (*domain.User, error) {
	for attempt := 0; ; attempt++ {
		if err := mutate(u); err != nil {
			return nil, err
		}
		err := users.Save(ctx, u)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, domain.ErrStaleRecord) || attempt == maxStaleRetries {
			return nil, err
		}
		if u, err = reload(ctx); err != nil {
			return nil, err
		}
	}
}

func newEvent(t events.Type, userID string, meta RequestMeta, attrs ...string) events.Event {
	e := events.Event{Type: t, UserID: userID, IP: meta.IP, UserAgent: meta.UserAgent}
	if len(attrs) > 1 {
		e.Attributes = make(map[string]string, len(attrs)/2)
		for i := 0; i+1 < len(attrs); i += 2 {
			e.Attributes[attrs[i]] = attrs[i+1]
		}
	}
	return e
}

// publish is best effort: a slow or failing broker never fails the caller.
func (s *Service) publish(ctx context.Context, e events.Event) {
	e.OccurredAt = s.now().UTC()
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, e); err != nil {
		logging.FromContext(ctx).Warn("audit event not published", "type", e.Type, "error", err)
	}
}
