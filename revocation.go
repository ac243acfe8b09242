package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RevocationRegistry exposes the three "invalidate everything issued
// before T" authorities. Getters default to the epoch when no record
// exists, so absent any revocation event all issued tokens remain valid
// until their own expiry. A storage error from any method must be treated
// as fatal to the request by callers, never as "no revocation found".
type RevocationRegistry interface {
	GlobalRevokeNow(ctx context.Context) (time.Time, error)
	AccountRevokeNow(ctx context.Context, accountID uuid.UUID) (time.Time, error)
	RecordPasswordChange(ctx context.Context, accountID uuid.UUID) (time.Time, error)
	GetGlobal(ctx context.Context) (time.Time, error)
	GetAccount(ctx context.Context, accountID uuid.UUID) (time.Time, error)
	GetPasswordChangedAt(ctx context.Context, accountID uuid.UUID) (time.Time, error)
}

var accountRevokeSQL = `UPDATE "users" AS "usr"
SET
	"revoked_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
);`

var passwordChangeStampSQL = `UPDATE "users" AS "usr"
SET
	"password_changed_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
);`

type revocationRegistry struct {
	db  *bun.DB
	now func() time.Time
}

var _ RevocationRegistry = (*revocationRegistry)(nil)

type RevocationOption func(*revocationRegistry)

// WithRevocationClock overrides the registry time source. Useful in tests.
func WithRevocationClock(now func() time.Time) RevocationOption {
	return func(r *revocationRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRevocationRegistry returns the bun-backed registry. The registry is
// an injected dependency with an explicit lifecycle: constructed once,
// read and written only through this interface.
func NewRevocationRegistry(db *bun.DB, opts ...RevocationOption) RevocationRegistry {
	reg := &revocationRegistry{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(reg)
		}
	}
	return reg
}

// GlobalRevokeNow stamps the singleton row with the current instant. The
// upsert is a single-row write, durably visible before the call returns.
func (r *revocationRegistry) GlobalRevokeNow(ctx context.Context) (time.Time, error) {
	now := r.now()
	record := &SystemRevocation{
		ID:        systemRevocationRowID,
		RevokedAt: now,
	}

	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("revoked_at = EXCLUDED.revoked_at").
		Exec(ctx)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to record global revocation")
	}

	return now, nil
}

// AccountRevokeNow stamps a single account, independent of the global row.
func (r *revocationRegistry) AccountRevokeNow(ctx context.Context, accountID uuid.UUID) (time.Time, error) {
	return r.stampAccount(ctx, accountID, accountRevokeSQL, "failed to record account revocation")
}

// RecordPasswordChange stamps the password-change instant. Callers invoke
// this only when the stored hash actually changed; a no-op credential
// update must not revoke valid sessions.
func (r *revocationRegistry) RecordPasswordChange(ctx context.Context, accountID uuid.UUID) (time.Time, error) {
	return r.stampAccount(ctx, accountID, passwordChangeStampSQL, "failed to record password change")
}

func (r *revocationRegistry) stampAccount(ctx context.Context, accountID uuid.UUID, query, failure string) (time.Time, error) {
	now := r.now()

	res, err := r.db.NewRaw(query, now, accountID).Exec(ctx)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.CategoryInternal, failure)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return time.Time{}, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"account_id": accountID.String()})
	}

	return now, nil
}

// GetGlobal reads the system wide revocation instant, epoch when the
// singleton row was never written.
func (r *revocationRegistry) GetGlobal(ctx context.Context) (time.Time, error) {
	record := &SystemRevocation{}

	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", systemRevocationRowID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to read global revocation")
	}

	return record.RevokedAt, nil
}

// GetAccount reads the account revocation instant, epoch when unset.
func (r *revocationRegistry) GetAccount(ctx context.Context, accountID uuid.UUID) (time.Time, error) {
	return r.readAccountStamp(ctx, accountID, "revoked_at")
}

// GetPasswordChangedAt reads the password-change instant, epoch when unset.
func (r *revocationRegistry) GetPasswordChangedAt(ctx context.Context, accountID uuid.UUID) (time.Time, error) {
	return r.readAccountStamp(ctx, accountID, "password_changed_at")
}

func (r *revocationRegistry) readAccountStamp(ctx context.Context, accountID uuid.UUID, column string) (time.Time, error) {
	var stamp sql.NullTime

	err := r.db.NewSelect().
		Model((*User)(nil)).
		Column(column).
		Where("?TableAlias.id = ?", accountID).
		Limit(1).
		Scan(ctx, &stamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// unknown accounts default to the epoch, same as accounts
			// that never revoked anything
			return time.Time{}, nil
		}
		return time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to read revocation state")
	}

	if !stamp.Valid {
		return time.Time{}, nil
	}
	return stamp.Time, nil
}
