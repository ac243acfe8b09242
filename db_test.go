package auth_test

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    user_role TEXT NOT NULL DEFAULT 'member',
    username TEXT UNIQUE,
    email TEXT UNIQUE,
    password_hash TEXT,
    revoked_at TIMESTAMP NULL,
    password_changed_at TIMESTAMP NULL,
    login_attempts INTEGER DEFAULT 0,
    login_attempt_at TIMESTAMP NULL,
    loggedin_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NULL,
    deleted_at TIMESTAMP NULL
);`

	sqliteCreateSystemRevocation = `CREATE TABLE system_revocation (
    id INTEGER NOT NULL PRIMARY KEY,
    revoked_at TIMESTAMP NOT NULL
);`

	sqliteCreateResetTokens = `CREATE TABLE password_reset_tokens (
    token TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL UNIQUE,
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
);`
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	for _, ddl := range []string{sqliteCreateUsers, sqliteCreateSystemRevocation, sqliteCreateResetTokens} {
		_, err = bunDB.Exec(ddl)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	return bunDB
}

func seedUser(t *testing.T, db *bun.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(
		"INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, ?)",
		id.String(), "user-"+id.String()[:8], id.String()[:8]+"@example.com", "x",
	)
	require.NoError(t, err)
	return id
}
