package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. Its revocation columns are the per-account
// half of the revocation state: revoked_at is stamped by an explicit
// "log me out everywhere", password_changed_at whenever the credential
// hash actually changes. Both default to the epoch so previously issued
// tokens stay valid until their own expiry absent any revocation event.
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role              UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Username          string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email             string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash      string     `bun:"password_hash" json:"-"`
	RevokedAt         *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	PasswordChangedAt *time.Time `bun:"password_changed_at,nullzero" json:"password_changed_at,omitempty"`
	LoginAttempts     int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt    *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt        *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// RoleTags returns the user's role tags as snapshotted into tokens.
func (u *User) RoleTags() []string {
	if u.Role == "" {
		return nil
	}
	return []string{string(u.Role)}
}

// SystemRevocation is the single row holding the system wide revocation
// instant. Updated only by an explicit administrative action.
type SystemRevocation struct {
	bun.BaseModel `bun:"table:system_revocation,alias:sysrev"`
	ID            int64     `bun:"id,pk" json:"id"`
	RevokedAt     time.Time `bun:"revoked_at,notnull" json:"revoked_at"`
}

// systemRevocationRowID is the fixed primary key of the singleton row.
const systemRevocationRowID int64 = 1

// PasswordResetToken is a single-use, time-boxed credential for the
// password reset flow. The unique constraint on user_id keeps at most one
// live token per account; a new request replaces the previous token.
type PasswordResetToken struct {
	bun.BaseModel `bun:"table:password_reset_tokens,alias:prt"`
	Token         string     `bun:"token,pk" json:"-"`
	UserID        uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
