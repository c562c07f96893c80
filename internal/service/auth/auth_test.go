package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
	"github.com/ShaanSolanki/lms/internal/validation"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func (m *memUsers) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return app_errors.ErrEmailTaken
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, app_errors.ErrUserNotFound
}

func (m *memUsers) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *memUsers) UserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *memUsers) UserByGitHubID(_ context.Context, id int64) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.GitHubID != nil && *u.GitHubID == id })
}

func (m *memUsers) update(id uuid.UUID, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return app_errors.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (m *memUsers) MarkEmailVerified(_ context.Context, id uuid.UUID) error {
	return m.update(id, func(u *models.User) { u.EmailVerified = true })
}

func (m *memUsers) LinkGitHub(_ context.Context, id uuid.UUID, githubID int64) error {
	return m.update(id, func(u *models.User) { u.GitHubID = &githubID })
}

func (m *memUsers) ClaimForGitHub(_ context.Context, id uuid.UUID, githubID int64) error {
	return m.update(id, func(u *models.User) {
		u.GitHubID = &githubID
		u.EmailVerified = true
		u.Password = ""
	})
}

func (m *memUsers) SetRole(_ context.Context, id uuid.UUID, role models.Role) error {
	return m.update(id, func(u *models.User) { u.Role = role })
}

func (m *memUsers) SetBan(_ context.Context, id uuid.UUID, ban models.Ban) error {
	return m.update(id, func(u *models.User) {
		u.Banned, u.BanReason, u.BanExpires = ban.Banned, ban.Reason, ban.Expires
	})
}

type memTokens struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]map[string]time.Time
}

func (m *memTokens) SaveToken(_ context.Context, userID uuid.UUID, raw string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens[userID] == nil {
		m.tokens[userID] = map[string]time.Time{}
	}
	m.tokens[userID][raw] = exp
	return nil
}

func (m *memTokens) FindToken(_ context.Context, userID uuid.UUID, raw string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.tokens[userID][raw]
	if !ok {
		return nil, app_errors.ErrTokenNotFound
	}
	return &models.RefreshToken{UserID: userID, ExpiresAt: exp}, nil
}

func (m *memTokens) DeleteUserTokens(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, userID)
	return nil
}

type otpEntry struct {
	code     string
	attempts int
}

type memCodes struct {
	mu     sync.Mutex
	codes  map[string]*otpEntry
	states map[string]bool
}

func (m *memCodes) SaveCode(_ context.Context, email, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = &otpEntry{code: code}
	return nil
}

func (m *memCodes) Attempt(_ context.Context, email string) (string, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.codes[email]
	if !ok {
		return "", 0, app_errors.ErrOTPNotFound
	}
	e.attempts++
	return e.code, e.attempts, nil
}

// lockstepCodes holds every Attempt until all expected callers have counted theirs.
type lockstepCodes struct {
	*memCodes
	arrived sync.WaitGroup
}

func (l *lockstepCodes) Attempt(ctx context.Context, email string) (string, int, error) {
	code, attempts, err := l.memCodes.Attempt(ctx, email)
	l.arrived.Done()
	l.arrived.Wait()
	return code, attempts, err
}

func (m *memCodes) DeleteCode(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, email)
	return nil
}

func (m *memCodes) SaveState(_ context.Context, state string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state] = true
	return nil
}

func (m *memCodes) ConsumeState(_ context.Context, state string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := m.states[state]
	delete(m.states, state)
	return ok, nil
}

type capturedMail struct {
	mu   sync.Mutex
	sent map[string]string
}

func (c *capturedMail) SendOTP(_ context.Context, to, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent[to] = code
	return nil
}

type fakeGitHub struct {
	profile *models.GitHubProfile
}

func (f fakeGitHub) AuthURL(state string) string { return "https://github.test/authorize?state=" + state }

func (f fakeGitHub) Exchange(_ context.Context, code string) (string, error) {
	if code != "good-code" {
		return "", app_errors.ErrOAuthExchange
	}
	return "gh-token", nil
}

func (f fakeGitHub) Profile(context.Context, string) (*models.GitHubProfile, error) {
	return f.profile, nil
}

type authFixture struct {
	svc    *AuthService
	users  *memUsers
	tokens *memTokens
	codes  *memCodes
	mail   *capturedMail
}

func newAuthFixture(t *testing.T, gh fakeGitHub) *authFixture {
	t.Helper()
	f := &authFixture{
		users:  &memUsers{users: map[uuid.UUID]*models.User{}},
		tokens: &memTokens{tokens: map[uuid.UUID]map[string]time.Time{}},
		codes:  &memCodes{codes: map[string]*otpEntry{}, states: map[string]bool{}},
		mail:   &capturedMail{sent: map[string]string{}},
	}
	f.svc = NewAuthService(
		logger.Discard(),
		NewJWTManager("secret", "lms", time.Minute, time.Hour),
		f.users, f.tokens, f.codes, f.mail, gh,
		validation.New(),
		OTPConfig{TTL: 5 * time.Minute, MaxAttempts: 3},
	)
	return f
}

func (f *authFixture) registerVerified(t *testing.T, email string) *models.User {
	t.Helper()
	ctx := context.Background()
	u, err := f.svc.Register(ctx, "Student", email, "password123")
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyEmail(ctx, email, f.mail.sent[u.Email]))
	return u
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t, fakeGitHub{})
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "Ada", " Ada@Example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.False(t, u.EmailVerified)
	assert.NotEqual(t, "password123", u.Password)
	assert.Len(t, f.mail.sent["ada@example.com"], 6)

	_, err = f.svc.Register(ctx, "Ada", "ada@example.com", "password123")
	assert.ErrorIs(t, err, app_errors.ErrEmailTaken)

	_, err = f.svc.Register(ctx, "Bob", "bob@example.com", "short")
	assert.ErrorIs(t, err, app_errors.ErrValidation)
}

func TestLogin_RequiresVerifiedEmail(t *testing.T) {
	f := newAuthFixture(t, fakeGitHub{})
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "ada@example.com", "password123")
	assert.ErrorIs(t, err, app_errors.ErrEmailNotVerified)

	require.NoError(t, f.svc.VerifyEmail(ctx, "ada@example.com", f.mail.sent["ada@example.com"]))

	pair, err := f.svc.Login(ctx, "ADA@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = f.svc.Login(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, app_errors.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, app_errors.ErrInvalidCredentials)
}

func TestVerifyEmail_AttemptLimit(t *testing.T) {
	f := newAuthFixture(t, fakeGitHub{})
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "Ada", "ada@example.com", "password123")
	require.NoError(t, err)
	code := f.mail.sent["ada@example.com"]

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "ada@example.com", "000000x"), app_errors.ErrOTPInvalid)
	}
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "ada@example.com", code), app_errors.ErrOTPAttempts)
	// the exhausted code is gone
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "ada@example.com", code), app_errors.ErrOTPInvalid)

	require.NoError(t, f.svc.SendVerificationOTP(ctx, "ada@example.com"))
	assert.NoError(t, f.svc.VerifyEmail(ctx, "ada@example.com", f.mail.sent["ada@example.com"]))
}

func TestVerifyEmail_ConcurrentGuessesShareTheLimit(t *testing.T) {
	const guesses = 20
	codes := &lockstepCodes{memCodes: &memCodes{codes: map[string]*otpEntry{}, states: map[string]bool{}}}
	codes.arrived.Add(guesses)
	svc := NewAuthService(
		logger.Discard(),
		NewJWTManager("secret", "lms", time.Minute, time.Hour),
		&memUsers{users: map[uuid.UUID]*models.User{}},
		&memTokens{tokens: map[uuid.UUID]map[string]time.Time{}},
		codes,
		&capturedMail{sent: map[string]string{}},
		fakeGitHub{},
		validation.New(),
		OTPConfig{TTL: 5 * time.Minute, MaxAttempts: 3},
	)
	ctx := context.Background()
	_, err := svc.Register(ctx, "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	errs := make(chan error, guesses)
	var wg sync.WaitGroup
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.VerifyEmail(ctx, "ada@example.com", "000000x")
		}()
	}
	wg.Wait()
	close(errs)

	compared, exhausted := 0, 0
	for err := range errs {
		switch {
		case errors.Is(err, app_errors.ErrOTPInvalid):
			compared++
		case errors.Is(err, app_errors.ErrOTPAttempts):
			exhausted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, compared)
	assert.Equal(t, guesses-3, exhausted)
}

func TestSendVerificationOTP_UnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t, fakeGitHub{})

	assert.NoError(t, f.svc.SendVerificationOTP(context.Background(), "ghost@example.com"))
	assert.Empty(t, f.mail.sent)
}

func TestRefreshTokens_Rotates(t *testing.T) {
	f := newAuthFixture(t, fakeGitHub{})
	ctx := context.Background()
	f.registerVerified(t, "ada@example.com")

	first, err := f.svc.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)

	second, err := f.svc.RefreshTokens(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.RefreshTokens(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, app_errors.ErrTokenNotFound)

	_, err = f.svc.RefreshTokens(ctx, second.AccessToken)
	assert.ErrorIs(t, err, app_errors.ErrInvalidToken)
}

func TestSession(t *testing.T) {
	f := newAuthFixture(t, fakeGitHub{})
	ctx := context.Background()
	u := f.registerVerified(t, "ada@example.com")
	pair, err := f.svc.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		h := http.Header{}
		h.Set("Authorization", "Bearer "+pair.AccessToken)
		s, err := f.svc.Session(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, u.ID, s.UserID)
		assert.False(t, s.IsAdmin())
	})

	t.Run("cookie", func(t *testing.T) {
		h := http.Header{}
		h.Set("Cookie", SessionCookie+"="+pair.AccessToken)
		s, err := f.svc.Session(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, u.ID, s.UserID)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := f.svc.Session(ctx, http.Header{})
		assert.ErrorIs(t, err, app_errors.ErrSessionRequired)
	})

	t.Run("role change applies immediately", func(t *testing.T) {
		require.NoError(t, f.svc.SetRole(ctx, u.ID, models.RoleAdmin))
		h := http.Header{}
		h.Set("Authorization", "Bearer "+pair.AccessToken)
		s, err := f.svc.Session(ctx, h)
		require.NoError(t, err)
		assert.True(t, s.IsAdmin())
	})
}

func TestBan(t *testing.T) {
	f := newAuthFixture(t, fakeGitHub{})
	ctx := context.Background()
	u := f.registerVerified(t, "ada@example.com")
	pair, err := f.svc.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, f.svc.Ban(ctx, u.ID, "spam", nil))

	_, err = f.svc.Login(ctx, "ada@example.com", "password123")
	assert.ErrorIs(t, err, app_errors.ErrUserBanned)
	_, err = f.svc.RefreshTokens(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, app_errors.ErrTokenNotFound)

	h := http.Header{}
	h.Set("Authorization", "Bearer "+pair.AccessToken)
	_, err = NewGate(f.svc).RequireSession(ctx, h)
	assert.ErrorIs(t, err, app_errors.ErrUserBanned)

	past := time.Now().Add(-time.Hour)
	assert.ErrorIs(t, f.svc.Ban(ctx, u.ID, "spam", &past), app_errors.ErrValidation)

	require.NoError(t, f.svc.Unban(ctx, u.ID))
	_, err = f.svc.Login(ctx, "ada@example.com", "password123")
	assert.NoError(t, err)
}

func TestSetRole_RejectsUnknownRole(t *testing.T) {
	f := newAuthFixture(t, fakeGitHub{})

	err := f.svc.SetRole(context.Background(), uuid.New(), "owner")
	assert.ErrorIs(t, err, app_errors.ErrValidation)
}

func TestGitHubCallback(t *testing.T) {
	profile := &models.GitHubProfile{ID: 42, Login: "octo", Email: "Octo@Example.com", AvatarURL: "https://avatars.test/42"}
	f := newAuthFixture(t, fakeGitHub{profile: profile})
	ctx := context.Background()

	_, err := f.svc.GitHubCallback(ctx, "good-code", "forged")
	assert.ErrorIs(t, err, app_errors.ErrOAuthState)

	authURL, err := f.svc.GitHubAuthURL(ctx)
	require.NoError(t, err)
	var state string
	for s := range f.codes.states {
		state = s
	}
	assert.Contains(t, authURL, state)

	pair, err := f.svc.GitHubCallback(ctx, "good-code", state)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	u, err := f.users.UserByEmail(ctx, "octo@example.com")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	assert.Equal(t, "octo", u.Name)
	require.NotNil(t, u.GitHubID)
	assert.Equal(t, int64(42), *u.GitHubID)

	// the state was consumed
	_, err = f.svc.GitHubCallback(ctx, "good-code", state)
	assert.ErrorIs(t, err, app_errors.ErrOAuthState)
}

func TestGitHubCallback_LinksExistingAccount(t *testing.T) {
	profile := &models.GitHubProfile{ID: 7, Login: "ada", Email: "ada@example.com"}
	f := newAuthFixture(t, fakeGitHub{profile: profile})
	ctx := context.Background()
	existing, err := f.svc.Register(ctx, "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	_, err = f.svc.GitHubAuthURL(ctx)
	require.NoError(t, err)
	var state string
	for s := range f.codes.states {
		state = s
	}

	_, err = f.svc.GitHubCallback(ctx, "good-code", state)
	require.NoError(t, err)

	u, err := f.users.UserByGitHubID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, u.ID)
	assert.True(t, u.EmailVerified)
}

func TestGitHubCallback_UnverifiedAccountLosesPassword(t *testing.T) {
	profile := &models.GitHubProfile{ID: 9, Login: "victim", Email: "victim@example.com"}
	f := newAuthFixture(t, fakeGitHub{profile: profile})
	ctx := context.Background()
	squatter, err := f.svc.Register(ctx, "Squatter", "victim@example.com", "squatterpw1")
	require.NoError(t, err)

	_, err = f.svc.GitHubAuthURL(ctx)
	require.NoError(t, err)
	var state string
	for s := range f.codes.states {
		state = s
	}
	_, err = f.svc.GitHubCallback(ctx, "good-code", state)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "victim@example.com", "squatterpw1")
	assert.ErrorIs(t, err, app_errors.ErrInvalidCredentials)

	u, err := f.users.UserByID(ctx, squatter.ID)
	require.NoError(t, err)
	assert.Empty(t, u.Password)
	assert.True(t, u.EmailVerified)
	require.NotNil(t, u.GitHubID)
	assert.Equal(t, int64(9), *u.GitHubID)
}

func TestGitHubCallback_VerifiedAccountKeepsPassword(t *testing.T) {
	profile := &models.GitHubProfile{ID: 11, Login: "ada", Email: "ada@example.com"}
	f := newAuthFixture(t, fakeGitHub{profile: profile})
	ctx := context.Background()
	f.registerVerified(t, "ada@example.com")

	_, err := f.svc.GitHubAuthURL(ctx)
	require.NoError(t, err)
	var state string
	for s := range f.codes.states {
		state = s
	}
	_, err = f.svc.GitHubCallback(ctx, "good-code", state)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "ada@example.com", "password123")
	assert.NoError(t, err)
}
