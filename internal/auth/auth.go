// Package auth provides the credential-checking capability consumed by the
// submission workflow. Verification is a boolean outcome: a wrong password
// and an unknown user are indistinguishable to the caller, and neither is
// an error.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Gateway verifies a username/password pair. Implementations must report
// bad credentials as (false, nil), reserving errors for infrastructure
// failures.
type Gateway interface {
	CheckCredential(ctx context.Context, username, password string) (bool, error)
}

// SQLGateway checks credentials against the users table, comparing bcrypt
// hashes.
type SQLGateway struct {
	db *sql.DB
}

// NewSQLGateway returns a Gateway over db. The users table is created by
// store.Open.
func NewSQLGateway(db *sql.DB) *SQLGateway {
	return &SQLGateway{db: db}
}

// CheckCredential reports whether the pair matches a stored account.
func (g *SQLGateway) CheckCredential(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}

	var hash string
	err := g.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE username = ?`, username,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("credential lookup: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

// Credential is a plaintext pair used only during seeding; the password is
// hashed before it reaches the database.
type Credential struct {
	Username string
	Password string
}

// Seed inserts the given accounts when the users table is empty. Existing
// accounts are never touched, so rotating a deployment's credentials is a
// matter of editing the table, not the environment.
func (g *SQLGateway) Seed(ctx context.Context, users []Credential) error {
	if len(users) == 0 {
		return nil
	}

	var n int
	if err := g.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		slog.Debug("user seed skipped, accounts already exist", "count", n)
		return nil
	}

	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Username, err)
		}
		if _, err := g.db.ExecContext(ctx,
			`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
			u.Username, string(hash)); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}

	slog.Info("seeded user accounts", "count", len(users))
	return nil
}

// ParseSeedUsers parses "username:password" pairs from the
// AUTH_SEED_USERS environment variable.
func ParseSeedUsers(pairs []string) ([]Credential, error) {
	var users []Credential
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, pass, ok := strings.Cut(pair, ":")
		if !ok || name == "" || pass == "" {
			return nil, fmt.Errorf("invalid seed user entry %q (want username:password)", pair)
		}
		users = append(users, Credential{Username: name, Password: pass})
	}
	return users, nil
}
