// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// AccountDirectory performs identity lookups and enforces email and phone
// uniqueness on top of an AccountRepository.
//
// A collision on either email or phone is a duplicate. Email is checked
// first and the first match wins.
type AccountDirectory struct {
	accounts AccountRepository
	clock    Clock
}

// NewAccountDirectory creates an AccountDirectory.
func NewAccountDirectory(accounts AccountRepository, clock Clock) (*AccountDirectory, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &AccountDirectory{accounts: accounts, clock: clock}, nil
}

// FindByEmail looks up an account by email. Returns an error wrapping
// ErrNotFound when no account matches.
func (d *AccountDirectory) FindByEmail(ctx context.Context, email string) (*Account, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(ErrNotFound)
	}
	return d.accounts.GetByEmail(ctx, normalized)
}

// FindByPhone looks up an account by phone number.
func (d *AccountDirectory) FindByPhone(ctx context.Context, phone string) (*Account, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(ErrNotFound)
	}
	return d.accounts.GetByPhone(ctx, normalized)
}

// FindByID looks up an account by ID.
func (d *AccountDirectory) FindByID(ctx context.Context, id ulid.ULID) (*Account, error) {
	return d.accounts.GetByID(ctx, id)
}

// Create validates and stores a new account.
func (d *AccountDirectory) Create(ctx context.Context, fullName string, email, phone *string, passwordHash string) (*Account, error) {
	account, err := NewAccount(fullName, email, phone, passwordHash, d.clock.Now())
	if err != nil {
		return nil, err
	}

	if account.Email != nil {
		if err := d.ensureFree("email", func() (*Account, error) {
			return d.accounts.GetByEmail(ctx, *account.Email)
		}); err != nil {
			return nil, err
		}
	}
	if account.Phone != nil {
		if err := d.ensureFree("phone", func() (*Account, error) {
			return d.accounts.GetByPhone(ctx, *account.Phone)
		}); err != nil {
			return nil, err
		}
	}

	if err := d.accounts.Create(ctx, account); err != nil {
		// Lost a race with a concurrent signup for the same identity.
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrDuplicateIdentity("identity")
		}
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "create account").
			Wrap(err)
	}
	return account, nil
}

// UpdatePasswordHash replaces the stored password hash.
func (d *AccountDirectory) UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string) error {
	if passwordHash == "" {
		return oops.Code(CodeInvalidInput).Errorf("password hash cannot be empty")
	}
	return d.accounts.UpdatePasswordHash(ctx, id, passwordHash, d.clock.Now())
}

// SetActive activates or deactivates an account.
func (d *AccountDirectory) SetActive(ctx context.Context, id ulid.ULID, active bool) error {
	return d.accounts.SetActive(ctx, id, active, d.clock.Now())
}

// MarkVerified marks an account's identity as verified.
func (d *AccountDirectory) MarkVerified(ctx context.Context, id ulid.ULID) error {
	return d.accounts.SetVerified(ctx, id, d.clock.Now())
}

// ReplacePasswordHash swaps in newHash only if the stored hash is still
// oldHash. A false result means the password changed underneath the caller.
func (d *AccountDirectory) ReplacePasswordHash(ctx context.Context, id ulid.ULID, oldHash, newHash string) (bool, error) {
	if newHash == "" {
		return false, oops.Code(CodeInvalidInput).Errorf("password hash cannot be empty")
	}
	return d.accounts.ReplacePasswordHash(ctx, id, oldHash, newHash, d.clock.Now())
}

// RecordLoginFailure counts a failed password check and returns the
// resulting lockout standing.
func (d *AccountDirectory) RecordLoginFailure(ctx context.Context, id ulid.ULID) (LockoutState, error) {
	now := d.clock.Now()
	failures, lockedUntil, err := d.accounts.RecordLoginFailure(ctx, id, LockoutThreshold, LockoutUntil(now), now)
	if err != nil {
		return LockoutState{}, err
	}
	return CheckLockout(failures, lockedUntil, now), nil
}

// ResetLoginFailures clears the failure counter after a successful login.
func (d *AccountDirectory) ResetLoginFailures(ctx context.Context, id ulid.ULID) error {
	return d.accounts.ResetLoginFailures(ctx, id, d.clock.Now())
}

func (d *AccountDirectory) ensureFree(field string, lookup func() (*Account, error)) error {
	_, err := lookup()
	if err == nil {
		return ErrDuplicateIdentity(field)
	}
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return oops.Code("ACCOUNT_CREATE_FAILED").
		With("operation", "check "+field+" uniqueness").
		Wrap(err)
}
