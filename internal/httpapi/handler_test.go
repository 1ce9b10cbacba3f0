// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelnudge/authcore/internal/auth"
	"github.com/travelnudge/authcore/internal/httpapi"
)

type fakeAuth struct {
	signupReq  auth.SignupRequest
	loginReq   auth.LoginRequest
	logoutTok  string
	provider   string
	credential string
	result     *auth.AuthResult
	account    *auth.Account
	err        error
}

func (f *fakeAuth) Signup(_ context.Context, req auth.SignupRequest) (*auth.AuthResult, error) {
	f.signupReq = req
	return f.result, f.err
}

func (f *fakeAuth) Login(_ context.Context, req auth.LoginRequest) (*auth.AuthResult, error) {
	f.loginReq = req
	return f.result, f.err
}

func (f *fakeAuth) Logout(_ context.Context, token string) {
	f.logoutTok = token
}

func (f *fakeAuth) CurrentAccount(_ context.Context, _ string) (*auth.Account, error) {
	return f.account, f.err
}

func (f *fakeAuth) SocialLogin(_ context.Context, provider, credential string) (*auth.AuthResult, error) {
	f.provider = provider
	f.credential = credential
	return f.result, f.err
}

type fakeResets struct {
	email       string
	credential  string
	newPassword string
	err         error
}

func (f *fakeResets) ForgotPassword(_ context.Context, email string) (string, error) {
	f.email = email
	if f.err != nil {
		return "", f.err
	}
	return auth.MsgResetRequested, nil
}

func (f *fakeResets) ValidateCredential(_ context.Context, credential string) (ulid.ULID, error) {
	f.credential = credential
	return ulid.Make(), f.err
}

func (f *fakeResets) ResetPassword(_ context.Context, credential, newPassword string) error {
	f.credential = credential
	f.newPassword = newPassword
	return f.err
}

type fakeVerify struct {
	sent  bool
	token string
	err   error
}

func (f *fakeVerify) RequestVerification(_ context.Context, token string) (bool, error) {
	f.token = token
	return f.sent, f.err
}

func (f *fakeVerify) ConfirmVerification(_ context.Context, token string) error {
	f.token = token
	return f.err
}

type fixture struct {
	auth    *fakeAuth
	resets  *fakeResets
	verify  *fakeVerify
	handler http.Handler
}

func newFixture(t *testing.T, opts ...httpapi.Option) *fixture {
	t.Helper()
	f := &fixture{
		auth:   &fakeAuth{},
		resets: &fakeResets{},
		verify: &fakeVerify{},
	}
	h, err := httpapi.NewHandler(f.auth, f.resets, f.verify, opts...)
	require.NoError(t, err)
	f.handler = h.Router()
	return f
}

func (f *fixture) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func sampleResult() *auth.AuthResult {
	email := "ada@example.com"
	return &auth.AuthResult{
		Token:     "signed.jwt.token",
		TokenType: auth.TokenTypeBearer,
		ExpiresAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Account: auth.AccountView{
			ID:       "01HZX0000000000000000000AA",
			FullName: "Ada Lovelace",
			Email:    &email,
			Active:   true,
		},
	}
}

func TestNewHandlerRequiresDependencies(t *testing.T) {
	_, err := httpapi.NewHandler(nil, &fakeResets{}, &fakeVerify{})
	assert.Error(t, err)
	_, err = httpapi.NewHandler(&fakeAuth{}, nil, &fakeVerify{})
	assert.Error(t, err)
	_, err = httpapi.NewHandler(&fakeAuth{}, &fakeResets{}, nil)
	assert.Error(t, err)
}

func TestSignup(t *testing.T) {
	f := newFixture(t)
	f.auth.result = sampleResult()

	rec := f.do(http.MethodPost, "/auth/signup",
		`{"full_name":"Ada Lovelace","email":"ada@example.com","password":"Secret123!","confirm_password":"Secret123!"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, httpapi.MsgSignedUp, body["message"])
	assert.Equal(t, "signed.jwt.token", body["access_token"])
	assert.Equal(t, "bearer", body["token_type"])
	assert.Equal(t, "2026-01-02T03:04:05Z", body["expires_at"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", user["full_name"])
	assert.NotContains(t, user, "password_hash")

	assert.Equal(t, "Ada Lovelace", f.auth.signupReq.FullName)
	require.NotNil(t, f.auth.signupReq.Email)
	assert.Equal(t, "ada@example.com", *f.auth.signupReq.Email)
	assert.Nil(t, f.auth.signupReq.Phone)
}

func TestSignupRejectsMalformedJSON(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/signup", `{"full_name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, auth.CodeValidation, body["code"])
}

func TestLoginPassesRememberMe(t *testing.T) {
	f := newFixture(t)
	f.auth.result = sampleResult()

	rec := f.do(http.MethodPost, "/auth/login", `{"phone":"+15550100","password":"pw","remember_me":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, httpapi.MsgLoggedIn, decodeBody(t, rec)["message"])
	assert.True(t, f.auth.loginReq.RememberMe)
	require.NotNil(t, f.auth.loginReq.Phone)
	assert.Nil(t, f.auth.loginReq.Email)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid credentials", auth.ErrInvalidCredentials(), http.StatusUnauthorized, auth.CodeInvalidCredentials},
		{"deactivated", auth.ErrAccountDeactivated(), http.StatusBadRequest, auth.CodeAccountDeactivated},
		{"locked", auth.ErrAccountLocked(time.Now().Add(time.Minute)), http.StatusLocked, auth.CodeAccountLocked},
		{"validation", auth.ErrValidation("email", "bad email"), http.StatusBadRequest, auth.CodeValidation},
		{"duplicate", auth.ErrDuplicateIdentity("email"), http.StatusBadRequest, auth.CodeDuplicateIdentity},
		{"infrastructure", oops.Code("ACCOUNT_GET_FAILED").Errorf("connection refused"), http.StatusInternalServerError, "INTERNAL"},
		{"plain error", assert.AnError, http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.auth.err = tt.err

			rec := f.do(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"pw"}`)

			assert.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["code"])
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", body["error"])
			} else {
				assert.Equal(t, tt.err.Error(), body["error"])
			}
		})
	}
}

func TestBearerRequired(t *testing.T) {
	routes := []struct{ method, path string }{
		{http.MethodPost, "/auth/logout"},
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/auth/verify-email/request"},
	}
	for _, rt := range routes {
		t.Run(rt.path, func(t *testing.T) {
			f := newFixture(t)

			missing := f.do(rt.method, rt.path, "")
			assert.Equal(t, http.StatusUnauthorized, missing.Code)
			assert.Equal(t, auth.CodeUnauthorized, decodeBody(t, missing)["code"])

			wrongScheme := f.do(rt.method, rt.path, "", "Authorization", "Basic abc")
			assert.Equal(t, http.StatusUnauthorized, wrongScheme.Code)
		})
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/logout", "", "Authorization", "Bearer tok-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, httpapi.MsgLoggedOut, decodeBody(t, rec)["message"])
	assert.Equal(t, "tok-1", f.auth.logoutTok)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	email := "ada@example.com"
	f.auth.account = &auth.Account{
		ID:           ulid.Make(),
		FullName:     "Ada Lovelace",
		Email:        &email,
		PasswordHash: "secret-hash",
		Active:       true,
	}

	rec := f.do(http.MethodGet, "/auth/me", "", "Authorization", "bearer tok-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-hash")
	body := decodeBody(t, rec)
	assert.Equal(t, "Ada Lovelace", body["full_name"])
	assert.Equal(t, true, body["is_active"])
}

func TestMeUnauthorized(t *testing.T) {
	f := newFixture(t)
	f.auth.err = auth.ErrUnauthorized()

	rec := f.do(http.MethodGet, "/auth/me", "", "Authorization", "Bearer expired")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForgotPassword(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/forgot-password", `{"email":"nobody@example.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auth.MsgResetRequested, decodeBody(t, rec)["message"])
	assert.Equal(t, "nobody@example.com", f.resets.email)
}

func TestForgotPasswordDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	f.resets.err = oops.Code(auth.CodeResetDelivery).Errorf("failed to send password reset email")

	rec := f.do(http.MethodPost, "/auth/forgot-password", `{"email":"ada@example.com"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, auth.CodeResetDelivery, decodeBody(t, rec)["code"])
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/reset-password", `{"token":"abc","new_password":"N3w!pass"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, httpapi.MsgPasswordReset, decodeBody(t, rec)["message"])
	assert.Equal(t, "abc", f.resets.credential)
	assert.Equal(t, "N3w!pass", f.resets.newPassword)
}

func TestResetPasswordExpired(t *testing.T) {
	f := newFixture(t)
	f.resets.err = auth.ErrTokenExpired()

	rec := f.do(http.MethodPost, "/auth/reset-password", `{"token":"abc","new_password":"N3w!pass"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, auth.CodeTokenExpired, decodeBody(t, rec)["code"])
}

func TestValidateResetToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/auth/reset-password/validate?token=abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", f.resets.credential)

	f.resets.err = auth.ErrTokenInvalid()
	rec = f.do(http.MethodGet, "/auth/reset-password/validate?token=zzz", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, auth.CodeTokenInvalid, decodeBody(t, rec)["code"])
}

func TestRequestVerification(t *testing.T) {
	f := newFixture(t)
	f.verify.sent = true

	rec := f.do(http.MethodPost, "/auth/verify-email/request", "", "Authorization", "Bearer tok-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, httpapi.MsgVerificationSent, decodeBody(t, rec)["message"])
	assert.Equal(t, "tok-1", f.verify.token)

	f.verify.sent = false
	rec = f.do(http.MethodPost, "/auth/verify-email/request", "", "Authorization", "Bearer tok-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, httpapi.MsgAlreadyVerified, decodeBody(t, rec)["message"])
}

func TestConfirmVerification(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/verify-email/confirm", `{"token":"verify-me"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, httpapi.MsgEmailVerified, decodeBody(t, rec)["message"])
	assert.Equal(t, "verify-me", f.verify.token)
}

func TestSocialLogin(t *testing.T) {
	f := newFixture(t)
	f.auth.result = sampleResult()

	rec := f.do(http.MethodPost, "/auth/social/google", `{"id_token":"id.jwt"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "google", f.auth.provider)
	assert.Equal(t, "id.jwt", f.auth.credential)
}

func TestSocialLoginUnsupportedProvider(t *testing.T) {
	f := newFixture(t)
	f.auth.err = auth.ErrProviderUnsupported("myspace")

	rec := f.do(http.MethodPost, "/auth/social/myspace", `{"id_token":"id.jwt"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, auth.CodeProviderUnsupported, decodeBody(t, rec)["code"])
}

func TestCredentialRoutesAreRateLimited(t *testing.T) {
	limiter := httpapi.NewRateLimiter(0.001, 2)
	t.Cleanup(limiter.Close)
	f := newFixture(t, httpapi.WithRateLimiter(limiter))
	f.auth.err = auth.ErrInvalidCredentials()
	before := testutil.ToFloat64(httpapi.RateLimitedTotal.WithLabelValues("login"))

	for range 2 {
		rec := f.do(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"pw"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := f.do(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"pw"}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, httpapi.CodeRateLimited, decodeBody(t, rec)["code"])
	assert.InDelta(t, before+1, testutil.ToFloat64(httpapi.RateLimitedTotal.WithLabelValues("login")), 0.001)

	// Session routes are not limited.
	me := f.do(http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestRequestsAreCountedByRoutePattern(t *testing.T) {
	f := newFixture(t)
	f.auth.result = sampleResult()
	counter := httpapi.RequestsTotal.WithLabelValues("/auth/social/{provider}", "200")
	before := testutil.ToFloat64(counter)

	f.do(http.MethodPost, "/auth/social/github", `{"id_token":"x"}`)

	assert.InDelta(t, before+1, testutil.ToFloat64(counter), 0.001)
}
