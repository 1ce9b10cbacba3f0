// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/travelnudge/authcore/internal/auth"
)

const accountColumns = `id, full_name, email, phone, password_hash, active, verified,
		       failed_attempts, locked_until, reset_token_hash, reset_expires_at,
		       created_at, updated_at`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create stores a new account. A taken email or phone yields an error
// wrapping auth.ErrDuplicate.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (
			id, full_name, email, phone, password_hash, active, verified,
			failed_attempts, locked_until, reset_token_hash, reset_expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		account.ID.String(),
		account.FullName,
		account.Email,
		account.Phone,
		account.PasswordHash,
		account.Active,
		account.Verified,
		account.FailedAttempts,
		account.LockedUntil,
		account.ResetTokenHash,
		account.ResetExpiresAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if constraint, ok := uniqueViolation(err); ok {
		return oops.Code("ACCOUNT_DUPLICATE").
			With("constraint", constraint).
			Wrap(auth.ErrDuplicate)
	}
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("id", account.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id.String())
	return r.getOne(row, "get account by id", "id", id.String())
}

// GetByEmail retrieves an account by its normalized email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return r.getOne(row, "get account by email", "email", email)
}

// GetByPhone retrieves an account by its normalized phone number.
func (r *AccountRepository) GetByPhone(ctx context.Context, phone string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE phone = $1`, phone)
	return r.getOne(row, "get account by phone", "phone", phone)
}

// GetByResetTokenHash retrieves the account holding a reset credential hash.
func (r *AccountRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE reset_token_hash = $1`, tokenHash)
	// The hash is a credential equivalent; keep it out of error context.
	return r.getOne(row, "get account by reset credential", "lookup", "reset_token_hash")
}

func (r *AccountRepository) getOne(row pgx.Row, operation, key, value string) (*auth.Account, error) {
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With(key, value).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", operation).
			With(key, value).
			Wrap(err)
	}
	return account, nil
}

// UpdatePasswordHash replaces the password hash for an account.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string, now time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, now)
	return expectOne(result, err, "ACCOUNT_UPDATE_PASSWORD_FAILED", "update password", id)
}

// ReplacePasswordHash swaps the password hash only while the row still holds
// oldHash, so a rehash never overwrites a password changed in the meantime.
func (r *AccountRepository) ReplacePasswordHash(ctx context.Context, id ulid.ULID, oldHash, newHash string, now time.Time) (bool, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET password_hash = $3, updated_at = $4
		WHERE id = $1 AND password_hash = $2
	`, id.String(), oldHash, newHash, now)
	if err != nil {
		return false, oops.Code("ACCOUNT_REPLACE_PASSWORD_FAILED").
			With("operation", "replace password hash").
			With("id", id.String()).
			Wrap(err)
	}
	return result.RowsAffected() == 1, nil
}

// RecordLoginFailure increments the failure counter in place and locks the
// account once the new count reaches threshold.
func (r *AccountRepository) RecordLoginFailure(ctx context.Context, id ulid.ULID, threshold int, lockUntil, now time.Time) (int, *time.Time, error) {
	var (
		failures    int
		lockedUntil *time.Time
	)
	err := r.db.QueryRow(ctx, `
		UPDATE accounts SET
			failed_attempts = failed_attempts + 1,
			locked_until = CASE WHEN failed_attempts + 1 >= $2 THEN $3::timestamptz ELSE NULL END,
			updated_at = $4
		WHERE id = $1
		RETURNING failed_attempts, locked_until
	`, id.String(), threshold, lockUntil, now).Scan(&failures, &lockedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, nil, oops.Code("ACCOUNT_RECORD_FAILURE_FAILED").
			With("operation", "record login failure").
			With("id", id.String()).
			Wrap(err)
	}
	return failures, lockedUntil, nil
}

// ResetLoginFailures clears the failure counter and any lock.
func (r *AccountRepository) ResetLoginFailures(ctx context.Context, id ulid.ULID, now time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET failed_attempts = 0, locked_until = NULL, updated_at = $2
		WHERE id = $1
	`, id.String(), now)
	return expectOne(result, err, "ACCOUNT_RESET_FAILURES_FAILED", "reset login failures", id)
}

// SetActive flips the active flag.
func (r *AccountRepository) SetActive(ctx context.Context, id ulid.ULID, active bool, now time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET active = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), active, now)
	return expectOne(result, err, "ACCOUNT_SET_ACTIVE_FAILED", "set active", id)
}

// SetVerified marks the account verified.
func (r *AccountRepository) SetVerified(ctx context.Context, id ulid.ULID, now time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET verified = TRUE, updated_at = $2
		WHERE id = $1
	`, id.String(), now)
	return expectOne(result, err, "ACCOUNT_SET_VERIFIED_FAILED", "set verified", id)
}

// SetResetCredential stores a reset credential hash and expiry, replacing
// any outstanding credential.
func (r *AccountRepository) SetResetCredential(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt, now time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET reset_token_hash = $2, reset_expires_at = $3, updated_at = $4
		WHERE id = $1
	`, id.String(), tokenHash, expiresAt, now)
	return expectOne(result, err, "ACCOUNT_SET_RESET_FAILED", "set reset credential", id)
}

// ClearResetCredential clears the credential only if it still equals tokenHash.
func (r *AccountRepository) ClearResetCredential(ctx context.Context, id ulid.ULID, tokenHash string, now time.Time) (bool, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET reset_token_hash = NULL, reset_expires_at = NULL, updated_at = $3
		WHERE id = $1 AND reset_token_hash = $2
	`, id.String(), tokenHash, now)
	if err != nil {
		return false, oops.Code("ACCOUNT_CLEAR_RESET_FAILED").
			With("operation", "clear reset credential").
			With("id", id.String()).
			Wrap(err)
	}
	return result.RowsAffected() == 1, nil
}

// ConsumeResetCredential swaps in the new password hash and clears the
// credential in a single conditional UPDATE. Of several concurrent callers
// holding the same credential, at most one sees true.
func (r *AccountRepository) ConsumeResetCredential(ctx context.Context, id ulid.ULID, tokenHash, passwordHash string, now time.Time) (bool, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET
			password_hash = $3,
			reset_token_hash = NULL,
			reset_expires_at = NULL,
			updated_at = $4
		WHERE id = $1 AND reset_token_hash = $2 AND reset_expires_at > $4
	`, id.String(), tokenHash, passwordHash, now)
	if err != nil {
		return false, oops.Code("ACCOUNT_CONSUME_RESET_FAILED").
			With("operation", "consume reset credential").
			With("id", id.String()).
			Wrap(err)
	}
	return result.RowsAffected() == 1, nil
}

// expectOne maps the outcome of a single-row UPDATE by ID.
func expectOne(result pgconn.CommandTag, err error, code, operation string, id ulid.ULID) error {
	if err != nil {
		return oops.Code(code).
			With("operation", operation).
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr   string
		account auth.Account
	)
	err := row.Scan(
		&idStr,
		&account.FullName,
		&account.Email,
		&account.Phone,
		&account.PasswordHash,
		&account.Active,
		&account.Verified,
		&account.FailedAttempts,
		&account.LockedUntil,
		&account.ResetTokenHash,
		&account.ResetExpiresAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}
	account.ID = id
	return &account, nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
