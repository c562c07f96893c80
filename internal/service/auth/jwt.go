package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
)

const (
	AccessTokenType  = "access"
	RefreshTokenType = "refresh"
)

var signingMethod = jwt.SigningMethodHS256

type JWTManager struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

func NewJWTManager(secretKey, issuer string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:  []byte(secretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     issuer,
		now:        time.Now,
	}
}

type AccessTokenClaims struct {
	TokenType string      `json:"token_type"`
	UserID    uuid.UUID   `json:"user_id"`
	Role      models.Role `json:"role"`
	jwt.RegisteredClaims
}

type RefreshTokenClaims struct {
	TokenType string    `json:"token_type"`
	UserID    uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

func (j *JWTManager) parse(tokenStr string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return app_errors.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", app_errors.ErrInvalidToken, err)
	}
	return nil
}

func (j *JWTManager) AccessClaims(tokenStr string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != AccessTokenType {
		return nil, fmt.Errorf("%w: expected %q token, got %q", app_errors.ErrInvalidToken, AccessTokenType, claims.TokenType)
	}
	return claims, nil
}

func (j *JWTManager) RefreshClaims(tokenStr string) (*RefreshTokenClaims, error) {
	claims := &RefreshTokenClaims{}
	if err := j.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != RefreshTokenType {
		return nil, fmt.Errorf("%w: expected %q token, got %q", app_errors.ErrInvalidToken, RefreshTokenType, claims.TokenType)
	}
	return claims, nil
}

func (j *JWTManager) GenerateTokenPair(userID uuid.UUID, role models.Role) (*models.TokenPair, time.Time, error) {
	now := j.now()
	accessExp := now.Add(j.accessTTL)
	refreshExp := now.Add(j.refreshTTL)

	accessToken := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		TokenType: AccessTokenType,
		UserID:    userID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    j.issuer,
			ExpiresAt: jwt.NewNumericDate(accessExp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})
	signedAccess, err := accessToken.SignedString(j.secretKey)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("access token signing failed: %w", err)
	}

	refreshToken := jwt.NewWithClaims(signingMethod, RefreshTokenClaims{
		TokenType: RefreshTokenType,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    j.issuer,
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})
	signedRefresh, err := refreshToken.SignedString(j.secretKey)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("refresh token signing failed: %w", err)
	}

	return &models.TokenPair{
		AccessToken:     signedAccess,
		RefreshToken:    signedRefresh,
		AccessExpiresAt: accessExp,
	}, refreshExp, nil
}
