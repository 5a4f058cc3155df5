package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func signRaw(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	assert.Error(t, err)

	_, err = NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	assert.Error(t, err, "a zero lifetime is rejected")

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	lifetime := 60 * time.Minute
	userID := uuid.New()
	svc := newHMACService(testSecret, lifetime, fixedClock(fixedTime))

	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(lifetime).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	lifetime := 60 * time.Minute
	userID := uuid.New()
	issuer := newHMACService(testSecret, lifetime, fixedClock(fixedTime))
	valid, err := issuer.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		svc     *hmacJWTService
		token   string
		wantErr error
	}{
		{
			name:  "valid token",
			svc:   issuer,
			token: valid,
		},
		{
			name:  "within clock skew after expiry",
			svc:   newHMACService(testSecret, lifetime, fixedClock(fixedTime.Add(lifetime+time.Minute))),
			token: valid,
		},
		{
			name:    "expired token",
			svc:     newHMACService(testSecret, lifetime, fixedClock(fixedTime.Add(lifetime+time.Hour))),
			token:   valid,
			wantErr: ErrExpiredToken,
		},
		{
			name:    "not yet valid",
			svc:     issuer,
			token:   signRaw(t, testSecret, jwt.RegisteredClaims{Subject: userID.String(), NotBefore: jwt.NewNumericDate(fixedTime.Add(time.Hour))}),
			wantErr: ErrTokenNotYetValid,
		},
		{
			name:    "invalid signature",
			svc:     newHMACService(wrongSecret, lifetime, fixedClock(fixedTime)),
			token:   valid,
			wantErr: ErrInvalidToken,
		},
		{
			name:    "malformed token",
			svc:     issuer,
			token:   "this.is.not.a.valid.jwt.token",
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong token type",
			svc:  issuer,
			token: signRaw(t, testSecret, jwtCustomClaims{UserID: userID, TokenType: "refresh", RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
			}}),
			wantErr: ErrWrongTokenType,
		},
		{
			name:    "subject that is not a user ID",
			svc:     issuer,
			token:   signRaw(t, testSecret, jwt.RegisteredClaims{Subject: "alice"}),
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			claims, err := tt.svc.ValidateToken(context.Background(), tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
		})
	}
}

func TestValidateTokenSubjectFallback(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := newHMACService(testSecret, time.Hour, time.Now)
	token := signRaw(t, testSecret, jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID, "tokens issued elsewhere carry the user in sub")
}
