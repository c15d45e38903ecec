package auth

import (
	"crypto/subtle"
	"fmt"
)

// Auth validates API bearer tokens against the single static token from
// the config file. The read-only stats API has no per-user accounts.
type Auth struct {
	token string
}

func New(token string) *Auth {
	return &Auth{token: token}
}

func (a *Auth) ValidateToken(token string) error {
	if a.token == "" {
		return fmt.Errorf("api token not configured")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
		return fmt.Errorf("token mismatch")
	}
	return nil
}
