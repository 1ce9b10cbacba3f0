// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Identity validation constraints.
const (
	MaxFullNameLength = 200
	MaxEmailLength    = 255
	MinPasswordLength = 6
)

// phoneRegex accepts 7 to 20 digits with an optional leading plus.
var phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,20}$`)

// Account represents a user identity record.
type Account struct {
	ID             ulid.ULID
	FullName       string
	Email          *string
	Phone          *string
	PasswordHash   string
	Active         bool
	Verified       bool
	FailedAttempts int
	LockedUntil    *time.Time
	ResetTokenHash *string
	ResetExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AccountView is the public projection of an Account. It never carries
// credential material.
type AccountView struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	Active    bool      `json:"is_active"`
	Verified  bool      `json:"is_verified"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAccount creates a validated, active, unverified Account.
// Email and phone are normalized; at least one must be present.
func NewAccount(fullName string, email, phone *string, passwordHash string, now time.Time) (*Account, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, ErrValidation("full_name", "full name cannot be empty")
	}
	if len(fullName) > MaxFullNameLength {
		return nil, ErrValidation("full_name", "full name must be at most %d characters", MaxFullNameLength)
	}

	email, err := normalizeOptionalEmail(email)
	if err != nil {
		return nil, err
	}
	phone, err = normalizeOptionalPhone(phone)
	if err != nil {
		return nil, err
	}
	if email == nil && phone == nil {
		return nil, ErrValidation("email", "an email or phone number is required")
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInvalidInput).Errorf("password hash cannot be empty")
	}

	return &Account{
		ID:           ulid.Make(),
		FullName:     fullName,
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// View returns the public projection of the account.
func (a *Account) View() AccountView {
	return AccountView{
		ID:        a.ID.String(),
		FullName:  a.FullName,
		Email:     a.Email,
		Phone:     a.Phone,
		Active:    a.Active,
		Verified:  a.Verified,
		CreatedAt: a.CreatedAt,
	}
}

// DisplayName returns the name used to greet the account holder.
func (a *Account) DisplayName() string {
	if a.FullName == "" {
		return "Traveler"
	}
	return a.FullName
}

// IsLockedAt returns true if the account is locked out at t.
func (a *Account) IsLockedAt(t time.Time) bool {
	return IsLockedOut(a.LockedUntil, t)
}

// NormalizeEmail trims and lower-cases an email address and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrValidation("email", "email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return "", ErrValidation("email", "email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrValidation("email", "email address is invalid")
	}
	return email, nil
}

// NormalizePhone strips formatting characters from a phone number and checks it.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	phone = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(phone)
	if !phoneRegex.MatchString(phone) {
		return "", ErrValidation("phone", "phone number must contain 7 to 20 digits")
	}
	return phone, nil
}

func normalizeOptionalEmail(email *string) (*string, error) {
	if email == nil || strings.TrimSpace(*email) == "" {
		return nil, nil
	}
	normalized, err := NormalizeEmail(*email)
	if err != nil {
		return nil, err
	}
	return &normalized, nil
}

func normalizeOptionalPhone(phone *string) (*string, error) {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil, nil
	}
	normalized, err := NormalizePhone(*phone)
	if err != nil {
		return nil, err
	}
	return &normalized, nil
}

// ValidatePassword checks a candidate password against the minimum policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrValidation("password", "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns an error wrapping ErrDuplicate
	// when the email or phone is already taken.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by normalized email.
	// Returns ErrNotFound if no account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByPhone retrieves an account by normalized phone.
	GetByPhone(ctx context.Context, phone string) (*Account, error)

	// UpdatePasswordHash replaces the password hash for an account.
	UpdatePasswordHash(ctx context.Context, id ulid.ULID, passwordHash string, now time.Time) error

	// ReplacePasswordHash swaps the password hash only while it still equals
	// oldHash. Returns false when another writer changed it first.
	ReplacePasswordHash(ctx context.Context, id ulid.ULID, oldHash, newHash string, now time.Time) (bool, error)

	// RecordLoginFailure atomically counts a failed login. When the new
	// count reaches threshold the account is locked until lockUntil.
	// Returns the stored count and lock.
	RecordLoginFailure(ctx context.Context, id ulid.ULID, threshold int, lockUntil, now time.Time) (int, *time.Time, error)

	// ResetLoginFailures clears the failure counter and any lock.
	ResetLoginFailures(ctx context.Context, id ulid.ULID, now time.Time) error

	// SetActive flips the active flag.
	SetActive(ctx context.Context, id ulid.ULID, active bool, now time.Time) error

	// SetVerified marks the account's identity as verified.
	SetVerified(ctx context.Context, id ulid.ULID, now time.Time) error

	// SetResetCredential stores the hash and expiry of a reset credential,
	// replacing any outstanding one.
	SetResetCredential(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt, now time.Time) error

	// GetByResetTokenHash retrieves the account holding the reset credential hash.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*Account, error)

	// ClearResetCredential clears the reset credential if it still equals tokenHash.
	// Returns false when the credential had already changed.
	ClearResetCredential(ctx context.Context, id ulid.ULID, tokenHash string, now time.Time) (bool, error)

	// ConsumeResetCredential replaces the password hash and clears the reset
	// credential in one atomic step, only if the credential still equals
	// tokenHash and has not expired at now. Returns false when another caller
	// consumed or replaced it first.
	ConsumeResetCredential(ctx context.Context, id ulid.ULID, tokenHash, passwordHash string, now time.Time) (bool, error)
}
