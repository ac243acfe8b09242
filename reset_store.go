package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultResetTokenTTL is the reset window used when the store is built
// without an explicit one.
const DefaultResetTokenTTL = time.Hour

// resetTokenBytes gives 256 bits of entropy, URL-safe encoded.
const resetTokenBytes = 32

// consumeResetTokenSQL is the single indivisible find-and-delete: two
// concurrent consumers of one token cannot both see the row.
var consumeResetTokenSQL = `DELETE FROM "password_reset_tokens"
WHERE
	"token" = ?
RETURNING "token", "user_id", "expires_at";`

// PasswordResetTokenStore owns the reset-token lifecycle: create a
// single-use token, validate-and-consume atomically, sweep expired rows.
type PasswordResetTokenStore interface {
	RequestReset(ctx context.Context, accountID uuid.UUID) (string, error)
	Consume(ctx context.Context, token string) (uuid.UUID, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

type resetStore struct {
	db  *bun.DB
	ttl time.Duration
	now func() time.Time
}

var _ PasswordResetTokenStore = (*resetStore)(nil)

type ResetStoreOption func(*resetStore)

// WithResetTokenTTL overrides the reset window.
func WithResetTokenTTL(ttl time.Duration) ResetStoreOption {
	return func(s *resetStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithResetClock overrides the store time source. Useful in tests.
func WithResetClock(now func() time.Time) ResetStoreOption {
	return func(s *resetStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewPasswordResetStore returns the bun-backed store.
func NewPasswordResetStore(db *bun.DB, opts ...ResetStoreOption) PasswordResetTokenStore {
	store := &resetStore{
		db:  db,
		ttl: DefaultResetTokenTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// RequestReset mints a random token for the account and atomically
// replaces any live token the account already had: the unique constraint
// on user_id plus the conflict clause keep at most one outstanding token
// per account. The raw token is returned for delivery through an external
// channel; the store never decides how it travels.
func (s *resetStore) RequestReset(ctx context.Context, accountID uuid.UUID) (string, error) {
	if accountID == uuid.Nil {
		return "", errors.New("account id is required", errors.CategoryBadInput)
	}

	token, err := generateResetToken()
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate reset token")
	}

	now := s.now()
	record := &PasswordResetToken{
		Token:     token,
		UserID:    accountID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: &now,
	}

	_, err = s.db.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("expires_at = EXCLUDED.expires_at").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to store reset token")
	}

	return token, nil
}

// Consume looks the token up and deletes it in one storage operation.
// An unknown or already consumed token fails with INVALID_TOKEN; a token
// past its window is removed as a side effect and fails with
// TOKEN_EXPIRED. No window exists where two concurrent calls both succeed.
func (s *resetStore) Consume(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, newResetTokenInvalidError()
	}

	record := &PasswordResetToken{}
	err := s.db.NewRaw(consumeResetTokenSQL, token).
		Scan(ctx, &record.Token, &record.UserID, &record.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, newResetTokenInvalidError()
		}
		return uuid.Nil, errors.Wrap(err, errors.CategoryInternal, "failed to consume reset token")
	}

	// expiry is inclusive: consuming at exactly the expiry instant fails
	if !s.now().Before(record.ExpiresAt) {
		return uuid.Nil, newResetTokenExpiredError(record.ExpiresAt)
	}

	return record.UserID, nil
}

// SweepExpired deletes every record whose expiry is before now and
// returns the deletion count. Idempotent; a consume racing the sweep is
// resolved by whichever deletion commits first, the other sees not-found.
func (s *resetStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*PasswordResetToken)(nil)).
		Where("?TableAlias.expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to sweep expired reset tokens")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to count swept reset tokens")
	}

	return affected, nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
