package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
	"github.com/ShaanSolanki/lms/internal/validation"
	"github.com/ShaanSolanki/lms/pkg/logger"
)

const (
	SessionCookie = "session_token"
	stateTTL      = 10 * time.Minute
)

type userRepo interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByGitHubID(ctx context.Context, githubID int64) (*models.User, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	LinkGitHub(ctx context.Context, id uuid.UUID, githubID int64) error
	ClaimForGitHub(ctx context.Context, id uuid.UUID, githubID int64) error
	SetRole(ctx context.Context, id uuid.UUID, role models.Role) error
	SetBan(ctx context.Context, id uuid.UUID, ban models.Ban) error
}

type tokenRepo interface {
	SaveToken(ctx context.Context, userID uuid.UUID, raw string, expiresAt time.Time) error
	FindToken(ctx context.Context, userID uuid.UUID, raw string) (*models.RefreshToken, error)
	DeleteUserTokens(ctx context.Context, userID uuid.UUID) error
}

type verificationStore interface {
	SaveCode(ctx context.Context, email, code string, ttl time.Duration) error
	Attempt(ctx context.Context, email string) (code string, attempts int, err error)
	DeleteCode(ctx context.Context, email string) error
	SaveState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeState(ctx context.Context, state string) (bool, error)
}

type mailer interface {
	SendOTP(ctx context.Context, to, code string) error
}

type oauthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	Profile(ctx context.Context, accessToken string) (*models.GitHubProfile, error)
}

type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

type AuthService struct {
	log        logger.Log
	jwtManager *JWTManager
	users      userRepo
	tokens     tokenRepo
	codes      verificationStore
	mail       mailer
	github     oauthProvider
	validate   *validation.Validator
	otp        OTPConfig
	now        func() time.Time
}

func NewAuthService(
	l logger.Log,
	manager *JWTManager,
	users userRepo,
	tokens tokenRepo,
	codes verificationStore,
	mail mailer,
	github oauthProvider,
	v *validation.Validator,
	otp OTPConfig,
) *AuthService {
	return &AuthService{
		log:        l,
		jwtManager: manager,
		users:      users,
		tokens:     tokens,
		codes:      codes,
		mail:       mail,
		github:     github,
		validate:   v,
		otp:        otp,
		now:        time.Now,
	}
}

type registration struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

// Register creates an unverified account and mails a verification code.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	in := registration{Name: strings.TrimSpace(name), Email: validation.NormalizeEmail(email), Password: password}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user := &models.User{
		ID:        uuid.New(),
		Name:      in.Name,
		Email:     in.Email,
		Password:  hash,
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.issueCode(ctx, user.Email); err != nil {
		// the account exists; the user can ask for another code
		s.log.ErrorErr("failed to send verification code", err, "user_id", user.ID)
	}
	return user, nil
}

func (s *AuthService) issueCode(ctx context.Context, email string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := s.codes.SaveCode(ctx, email, code, s.otp.TTL); err != nil {
		return err
	}
	return s.mail.SendOTP(ctx, email, code)
}

// SendVerificationOTP mails a fresh code. Unknown and already verified addresses are ignored
// so the endpoint does not reveal which emails are registered.
func (s *AuthService) SendVerificationOTP(ctx context.Context, email string) error {
	email = validation.NormalizeEmail(email)
	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, app_errors.ErrUserNotFound) {
			s.log.Debug("verification code requested for unknown email")
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}
	return s.issueCode(ctx, email)
}

func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	email = validation.NormalizeEmail(email)
	stored, attempts, err := s.codes.Attempt(ctx, email)
	if err != nil {
		if errors.Is(err, app_errors.ErrOTPNotFound) {
			return app_errors.ErrOTPInvalid
		}
		return err
	}
	if attempts > s.otp.MaxAttempts {
		if err := s.codes.DeleteCode(ctx, email); err != nil {
			return err
		}
		return app_errors.ErrOTPAttempts
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) != 1 {
		return app_errors.ErrOTPInvalid
	}

	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return err
	}
	return s.codes.DeleteCode(ctx, email)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	user, err := s.users.UserByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, app_errors.ErrUserNotFound) {
			return nil, app_errors.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Password == "" || !checkPasswordHash(password, user.Password) {
		return nil, app_errors.ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return nil, app_errors.ErrEmailNotVerified
	}
	if user.IsBanned(s.now()) {
		return nil, app_errors.ErrUserBanned
	}
	return s.issueTokens(ctx, user)
}

// issueTokens replaces every refresh token of the user with a new pair.
func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	pair, refreshExp, err := s.jwtManager.GenerateTokenPair(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.DeleteUserTokens(ctx, user.ID); err != nil {
		return nil, err
	}
	if err := s.tokens.SaveToken(ctx, user.ID, pair.RefreshToken, refreshExp); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.jwtManager.RefreshClaims(refreshToken)
	if err != nil {
		return nil, err
	}
	record, err := s.tokens.FindToken(ctx, claims.UserID, refreshToken)
	if err != nil {
		return nil, err
	}
	if record.ExpiresAt.Before(s.now()) {
		return nil, app_errors.ErrTokenExpired
	}
	user, err := s.users.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, app_errors.ErrUserNotFound) {
			return nil, app_errors.ErrInvalidToken
		}
		return nil, err
	}
	if user.IsBanned(s.now()) {
		return nil, app_errors.ErrUserBanned
	}
	return s.issueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.tokens.DeleteUserTokens(ctx, userID)
}

func (s *AuthService) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.UserByID(ctx, id)
}

// Session resolves the caller from the bearer token or the session cookie.
func (s *AuthService) Session(ctx context.Context, header http.Header) (*models.Session, error) {
	token := bearerToken(header)
	if token == "" {
		return nil, app_errors.ErrSessionRequired
	}
	claims, err := s.jwtManager.AccessClaims(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, app_errors.ErrUserNotFound) {
			return nil, app_errors.ErrSessionRequired
		}
		return nil, err
	}

	session := &models.Session{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Banned: user.IsBanned(s.now()),
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

func bearerToken(header http.Header) string {
	if v := header.Get("Authorization"); v != "" {
		if token, ok := strings.CutPrefix(v, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := (&http.Request{Header: header}).Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (s *AuthService) GitHubAuthURL(ctx context.Context) (string, error) {
	state, err := randomHex(16)
	if err != nil {
		return "", err
	}
	if err := s.codes.SaveState(ctx, state, stateTTL); err != nil {
		return "", err
	}
	return s.github.AuthURL(state), nil
}

// GitHubCallback finishes the OAuth flow. Accounts are matched by GitHub id first,
// then by verified email; otherwise a new verified account is created.
func (s *AuthService) GitHubCallback(ctx context.Context, code, state string) (*models.TokenPair, error) {
	ok, err := s.codes.ConsumeState(ctx, state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, app_errors.ErrOAuthState
	}

	accessToken, err := s.github.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	profile, err := s.github.Profile(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if profile.Email == "" {
		return nil, app_errors.ErrOAuthEmail
	}

	user, err := s.githubUser(ctx, profile)
	if err != nil {
		return nil, err
	}
	if user.IsBanned(s.now()) {
		return nil, app_errors.ErrUserBanned
	}
	return s.issueTokens(ctx, user)
}

func (s *AuthService) githubUser(ctx context.Context, p *models.GitHubProfile) (*models.User, error) {
	user, err := s.users.UserByGitHubID(ctx, p.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, app_errors.ErrUserNotFound) {
		return nil, err
	}

	githubID := p.ID
	email := validation.NormalizeEmail(p.Email)
	user, err = s.users.UserByEmail(ctx, email)
	switch {
	case err == nil && user.EmailVerified:
		if err := s.users.LinkGitHub(ctx, user.ID, p.ID); err != nil {
			return nil, err
		}
		return user, nil
	case err == nil:
		// nobody proved ownership of this address before, so whoever set the password loses it
		if err := s.users.ClaimForGitHub(ctx, user.ID, p.ID); err != nil {
			return nil, err
		}
		if err := s.tokens.DeleteUserTokens(ctx, user.ID); err != nil {
			return nil, err
		}
		user.GitHubID = &githubID
		user.EmailVerified = true
		user.Password = ""
		return user, nil
	case !errors.Is(err, app_errors.ErrUserNotFound):
		return nil, err
	}

	name := p.Name
	if name == "" {
		name = p.Login
	}
	now := s.now().UTC()
	user = &models.User{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		Image:         p.AvatarURL,
		EmailVerified: true,
		Role:          models.RoleUser,
		GitHubID:      &githubID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) SetRole(ctx context.Context, userID uuid.UUID, role models.Role) error {
	if !role.Valid() {
		return app_errors.Invalid("role", "must be one of: user, admin")
	}
	return s.users.SetRole(ctx, userID, role)
}

// Ban blocks the user until expires (forever when nil) and revokes their refresh tokens.
func (s *AuthService) Ban(ctx context.Context, userID uuid.UUID, reason string, expires *time.Time) error {
	if expires != nil && !expires.After(s.now()) {
		return app_errors.Invalid("expiresAt", "must be in the future")
	}
	if err := s.users.SetBan(ctx, userID, models.Ban{Banned: true, Reason: reason, Expires: expires}); err != nil {
		return err
	}
	return s.tokens.DeleteUserTokens(ctx, userID)
}

func (s *AuthService) Unban(ctx context.Context, userID uuid.UUID) error {
	return s.users.SetBan(ctx, userID, models.Ban{})
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(bytes), nil
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
