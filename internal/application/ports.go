package application

import (
	"strings"
	"time"
)

// PasswordHasher is satisfied by helpers.BcryptHasher.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(digest, plain string) bool
}

// TokenIssuer is satisfied by helpers.JWTManager.
type TokenIssuer interface {
	Issue(userID int64, email string) (string, time.Time, error)
}

// uniqueIDs drops duplicates while keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	if ids == nil {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// applyName overwrites dst when v is supplied; names may not be blank.
func applyName(dst *string, v *string) error {
	if v == nil {
		return nil
	}
	name := strings.TrimSpace(*v)
	if name == "" {
		return ErrNameRequired
	}
	*dst = name
	return nil
}

// applyText overwrites dst when v is supplied, including with "".
func applyText(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
