// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the authentication flows as a JSON API under /auth.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/travelnudge/authcore/internal/auth"
)

const timeFormat = time.RFC3339

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// Response messages.
const (
	MsgSignedUp         = "Account created successfully! Welcome to TravelNudge!"
	MsgLoggedIn         = "Login successful! Welcome back to TravelNudge!"
	MsgLoggedOut        = "Logged out successfully."
	MsgPasswordReset    = "Password has been reset successfully."
	MsgResetTokenValid  = "Reset token is valid."
	MsgVerificationSent = "Verification email sent."
	MsgAlreadyVerified  = "Email is already verified or not set."
	MsgEmailVerified    = "Email verified successfully."
	MsgSocialLoggedIn   = "Login successful! Welcome to TravelNudge!"
	MsgInvalidJSONBody  = "request body must be a JSON object"
)

const (
	fieldRequestBody     = "body"
	bearerScheme         = "bearer"
	authorizationHeader  = "Authorization"
	resetTokenQueryParam = "token"
)

// Authenticator runs the session flows.
type Authenticator interface {
	Signup(ctx context.Context, req auth.SignupRequest) (*auth.AuthResult, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResult, error)
	Logout(ctx context.Context, token string)
	CurrentAccount(ctx context.Context, token string) (*auth.Account, error)
	SocialLogin(ctx context.Context, provider, credential string) (*auth.AuthResult, error)
}

// PasswordResetter runs the forgot-password and reset-password flows.
type PasswordResetter interface {
	ForgotPassword(ctx context.Context, email string) (string, error)
	ValidateCredential(ctx context.Context, credential string) (ulid.ULID, error)
	ResetPassword(ctx context.Context, credential, newPassword string) error
}

// EmailVerifier runs the email verification flow.
type EmailVerifier interface {
	RequestVerification(ctx context.Context, sessionToken string) (bool, error)
	ConfirmVerification(ctx context.Context, token string) error
}

// Handler serves the auth API.
type Handler struct {
	auth       Authenticator
	resets     PasswordResetter
	verify     EmailVerifier
	limiter    *RateLimiter
	logger     *slog.Logger
	trustProxy bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for internal errors.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRateLimiter limits the credential endpoints per client IP. The caller
// owns the limiter and must Close it.
func WithRateLimiter(l *RateLimiter) Option {
	return func(h *Handler) {
		h.limiter = l
	}
}

// WithTrustedProxy takes the client IP from X-Forwarded-For and X-Real-IP.
func WithTrustedProxy(trust bool) Option {
	return func(h *Handler) {
		h.trustProxy = trust
	}
}

// NewHandler creates a Handler.
func NewHandler(authn Authenticator, resets PasswordResetter, verify EmailVerifier, opts ...Option) (*Handler, error) {
	if authn == nil {
		return nil, oops.Errorf("authenticator is required")
	}
	if resets == nil {
		return nil, oops.Errorf("password resetter is required")
	}
	if verify == nil {
		return nil, oops.Errorf("email verifier is required")
	}
	h := &Handler{
		auth:   authn,
		resets: resets,
		verify: verify,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Router returns the API routes mounted under /auth.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	if h.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(countRequests)
	r.Use(middleware.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.With(h.limit("signup")).Post("/signup", h.handleSignup)
		r.With(h.limit("login")).Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.With(h.limit("forgot_password")).Post("/forgot-password", h.handleForgotPassword)
		r.With(h.limit("reset_password")).Post("/reset-password", h.handleResetPassword)
		r.Get("/reset-password/validate", h.handleValidateReset)
		r.Post("/verify-email/request", h.handleRequestVerification)
		r.Post("/verify-email/confirm", h.handleConfirmVerification)
		r.With(h.limit("social")).Post("/social/{provider}", h.handleSocial)
	})
	return r
}

func (h *Handler) limit(route string) func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return h.limiter.Middleware(route)
}

// countRequests records the matched route pattern and final status.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

type signupRequest struct {
	FullName        string  `json:"full_name"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirm_password"`
}

type loginRequest struct {
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Password   string  `json:"password"`
	RememberMe bool    `json:"remember_me"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type socialRequest struct {
	IDToken string `json:"id_token"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.auth.Signup(r.Context(), auth.SignupRequest{
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeAuth(w, http.StatusCreated, MsgSignedUp, result)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.auth.Login(r.Context(), auth.LoginRequest{
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeAuth(w, http.StatusOK, MsgLoggedIn, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := h.bearer(w, r)
	if !ok {
		return
	}
	h.auth.Logout(r.Context(), token)
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: MsgLoggedOut})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	token, ok := h.bearer(w, r)
	if !ok {
		return
	}
	account, err := h.auth.CurrentAccount(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account.View())
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	msg, err := h.resets.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: msg})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.resets.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: MsgPasswordReset})
}

func (h *Handler) handleValidateReset(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get(resetTokenQueryParam)
	if _, err := h.resets.ValidateCredential(r.Context(), token); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: MsgResetTokenValid})
}

func (h *Handler) handleRequestVerification(w http.ResponseWriter, r *http.Request) {
	token, ok := h.bearer(w, r)
	if !ok {
		return
	}
	sent, err := h.verify.RequestVerification(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	msg := MsgVerificationSent
	if !sent {
		msg = MsgAlreadyVerified
	}
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: msg})
}

func (h *Handler) handleConfirmVerification(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.verify.ConfirmVerification(r.Context(), req.Token); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: MsgEmailVerified})
}

func (h *Handler) handleSocial(w http.ResponseWriter, r *http.Request) {
	var req socialRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.auth.SocialLogin(r.Context(), chi.URLParam(r, "provider"), req.IDToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeAuth(w, http.StatusOK, MsgSocialLoggedIn, result)
}

// decode reads a JSON object body into out. On failure it writes a
// validation error and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		h.writeError(w, r, auth.ErrValidation(fieldRequestBody, MsgInvalidJSONBody))
		return false
	}
	return true
}

// bearer extracts the token from an "Authorization: Bearer" header. A
// missing or malformed header is AUTH_UNAUTHORIZED.
func (h *Handler) bearer(w http.ResponseWriter, r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get(authorizationHeader), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, bearerScheme) || token == "" {
		h.writeError(w, r, auth.ErrUnauthorized())
		return "", false
	}
	return token, true
}
