package helpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signRaw(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTIssueVerifyRoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)

	token, exp, err := m.Issue(42, "john@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "john@example.com", claims.Email)
	assert.WithinDuration(t, exp, claims.ExpiresAt, time.Second)
}

func TestJWTVerifyRejectsForeignSignature(t *testing.T) {
	other := NewJWTManager("another-secret", time.Hour)
	token, _, err := other.Issue(1, "a@b.c")
	require.NoError(t, err)

	_, err = NewJWTManager(testSecret, time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifyRejectsMalformed(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)
	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := m.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

func TestJWTVerifyRejectsNoneAlgorithm(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": 1,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTManager(testSecret, time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifyExpired(t *testing.T) {
	m := NewJWTManager(testSecret, time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.Issue(7, "x@example.com")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTVerifyRequiresExpiry(t *testing.T) {
	tok := signRaw(t, testSecret, jwt.MapClaims{"sub": 1})
	_, err := NewJWTManager(testSecret, time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifyNormalizesSubject(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)
	exp := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name    string
		sub     any
		want    int64
		wantErr error
	}{
		{name: "number", sub: 12, want: 12},
		{name: "string", sub: "34", want: 34},
		{name: "padded string", sub: " 56 ", want: 56},
		{name: "non numeric", sub: "abc", wantErr: ErrInvalidPrincipal},
		{name: "fraction", sub: 1.5, wantErr: ErrInvalidPrincipal},
		{name: "missing", sub: nil, wantErr: ErrInvalidPrincipal},
		{name: "bool", sub: true, wantErr: ErrInvalidPrincipal},
		{name: "whole float", sub: 7.0, want: 7},
		{name: "beyond int64", sub: 1e19, wantErr: ErrInvalidPrincipal},
		{name: "beyond int64 negative", sub: -1e19, wantErr: ErrInvalidPrincipal},
		{name: "beyond int64 string", sub: "9223372036854775808", wantErr: ErrInvalidPrincipal},
		{name: "zero", sub: 0, wantErr: ErrInvalidPrincipal},
		{name: "negative", sub: -3, wantErr: ErrInvalidPrincipal},
		{name: "negative string", sub: "-3", wantErr: ErrInvalidPrincipal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims := jwt.MapClaims{"email": "e@example.com", "exp": exp}
			if tc.sub != nil {
				claims["sub"] = tc.sub
			}
			got, err := m.Verify(signRaw(t, testSecret, claims))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.UserID)
		})
	}
}
