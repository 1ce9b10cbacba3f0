// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides credential and session management for authcore.
//
// # Domain Types
//
// Domain types (Account, Session) should be created using their
// constructors:
//   - NewAccount - creates an Account with normalized email and phone
//   - NewSession - creates an active Session with a validated expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Components
//
//   - PasswordHasher - argon2id hashing with legacy bcrypt verification
//   - TokenService - signed, expiring bearer tokens scoped by purpose
//   - SessionStore - server-side session records and authorization
//   - AccountDirectory - identity lookup and uniqueness
//
// # Services
//
// Service types coordinate the flows:
//   - Service - signup, login, logout, current account, social login
//   - PasswordResetService - forgot-password and reset-password
//   - VerificationService - email verification
//
// Services are created with New*Service constructors that validate dependencies.
// Every error carries a stable oops code declared in errors.go.
package auth
