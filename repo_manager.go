package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	ResetTokens() PasswordResetTokenStore
	Revocations() RevocationRegistry
}

type mngr struct {
	db          *bun.DB
	users       Users
	resetTokens PasswordResetTokenStore
	revocations RevocationRegistry
}

type ManagerOption func(*mngr)

// WithResetStoreOptions forwards options to the reset-token store the
// manager builds.
func WithResetStoreOptions(opts ...ResetStoreOption) ManagerOption {
	return func(m *mngr) {
		m.resetTokens = NewPasswordResetStore(m.db, opts...)
	}
}

// WithRevocationOptions forwards options to the revocation registry the
// manager builds.
func WithRevocationOptions(opts ...RevocationOption) ManagerOption {
	return func(m *mngr) {
		m.revocations = NewRevocationRegistry(m.db, opts...)
	}
}

func NewRepositoryManager(db *bun.DB, opts ...ManagerOption) RepositoryManager {
	m := &mngr{
		db:          db,
		users:       NewUsersRepository(db),
		resetTokens: NewPasswordResetStore(db),
		revocations: NewRevocationRegistry(db),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.resetTokens == nil {
		return errors.New("reset token store should be initialized")
	}

	if m.revocations == nil {
		return errors.New("revocation registry should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) ResetTokens() PasswordResetTokenStore {
	return m.resetTokens
}

func (m mngr) Revocations() RevocationRegistry {
	return m.revocations
}
