package user

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/kokokojo2/desk2-virtual-university-backend/core"
)

// TokenPurpose namespaces short-lived verification codes in the token store.
type TokenPurpose string

const (
	PasswordResetToken TokenPurpose = "password"
	EmailConfirmToken  TokenPurpose = "email"
	TwoFAToken         TokenPurpose = "2fa"
	// UnregisteredEmailToken confirms an email address that has no account yet
	// (registration and email change flows); it is keyed by the email itself.
	UnregisteredEmailToken TokenPurpose = "unregistered"
)

func (p TokenPurpose) timeout() time.Duration {
	switch p {
	case PasswordResetToken:
		return core.Conf.PasswordResetTokenTimeout
	case TwoFAToken:
		return core.Conf.TwoFATokenTimeout
	default:
		return core.Conf.EmailConfirmTokenTimeout
	}
}

var (
	salt    = []byte("desk2.core.user.token_gen")
	NowFunc = time.Now // mockable
)

// TokenGenerator issues and verifies short numeric-ish codes backed by a
// KVStore with TTL expiry. A new code for the same (purpose, key) pair
// overwrites the previous one.
type TokenGenerator struct {
	store core.KVStore
}

func NewTokenGenerator(store core.KVStore) *TokenGenerator {
	return &TokenGenerator{store: store}
}

func (g *TokenGenerator) storageKey(purpose TokenPurpose, key string) string {
	return string(purpose) + "_" + key
}

// Make generates a code for the given purpose and key and stores it with the
// purpose's TTL.
func (g *TokenGenerator) Make(ctx context.Context, purpose TokenPurpose, key string) (string, error) {
	token := shortToken(purpose, key, NowFunc())
	if err := g.store.Set(ctx, g.storageKey(purpose, key), token, purpose.timeout()); err != nil {
		return "", errors.Wrap(err, "storing token")
	}
	return token, nil
}

// Check verifies a code against the stored one. An absent or expired entry
// fails closed. When consume is set, the entry is removed on read so the code
// cannot be replayed.
func (g *TokenGenerator) Check(ctx context.Context, purpose TokenPurpose, key, token string, consume bool) (bool, error) {
	if token == "" {
		return false, nil
	}

	genuine, err := g.store.Get(ctx, g.storageKey(purpose, key))
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "reading token")
	}

	if consume {
		if err = g.store.Delete(ctx, g.storageKey(purpose, key)); err != nil {
			return false, errors.Wrap(err, "consuming token")
		}
	}
	return subtle.ConstantTimeCompare([]byte(genuine), []byte(token)) == 1, nil
}

// shortToken derives a code from the signing key, the (purpose, key) pair and
// the timestamp rounded down to 5 minutes.
func shortToken(purpose TokenPurpose, key string, now time.Time) string {
	ts := now.Truncate(5 * time.Minute).Unix()

	mac := hmac.New(sha256.New, append(salt, core.Conf.SecretKey...))
	mac.Write([]byte(string(purpose) + key + strconv.FormatInt(ts, 10)))
	sum := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(mac.Sum(nil))

	if n := core.Conf.TokenLength; n > 0 && n < len(sum) {
		return sum[len(sum)-n:]
	}
	return sum
}
