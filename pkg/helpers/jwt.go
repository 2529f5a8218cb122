package helpers

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oksasatya/go-rbac-auth/pkg/apperror"
)

var (
	ErrInvalidToken     = apperror.New(apperror.Unauthorized, "invalid token")
	ErrTokenExpired     = apperror.New(apperror.Unauthorized, "token expired")
	ErrInvalidPrincipal = apperror.New(apperror.Unauthorized, "invalid user id")
)

// JWTManager issues and verifies HS256 access tokens. The secret is read-only
// after construction.
type JWTManager struct {
	secret    []byte
	AccessTTL time.Duration
	now       func() time.Time
}

func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:    []byte(secret),
		AccessTTL: accessTTL,
		now:       time.Now,
	}
}

// Claims is the verified content of an access token.
type Claims struct {
	UserID    int64
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issue signs a token carrying sub (numeric user id) and email.
func (m *JWTManager) Issue(userID int64, email string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.AccessTTL)
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(exp),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.secret)
	return s, exp, err
}

// Verify checks signature and expiry and normalizes sub to an int64.
func (m *JWTManager) Verify(tokenStr string) (*Claims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithJSONNumber(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	uid, err := subjectToID(claims["sub"])
	if err != nil {
		return nil, err
	}
	out := &Claims{UserID: uid}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// subjectToID accepts a JSON number or a decimal string holding a positive
// int64.
func subjectToID(v any) (int64, error) {
	var id int64
	switch s := v.(type) {
	case json.Number:
		if n, err := s.Int64(); err == nil {
			id = n
			break
		}
		f, err := s.Float64()
		if err != nil {
			return 0, ErrInvalidPrincipal
		}
		if id, err = floatToID(f); err != nil {
			return 0, err
		}
	case float64:
		n, err := floatToID(s)
		if err != nil {
			return 0, err
		}
		id = n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, ErrInvalidPrincipal
		}
		id = n
	default:
		return 0, ErrInvalidPrincipal
	}
	if id <= 0 {
		return 0, ErrInvalidPrincipal
	}
	return id, nil
}

// floatToID rejects fractions and values outside the int64 range.
// float64(math.MaxInt64) rounds up to 2^63, hence the >=.
func floatToID(f float64) (int64, error) {
	if math.IsNaN(f) || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, ErrInvalidPrincipal
	}
	return int64(f), nil
}
