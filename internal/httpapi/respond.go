// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/travelnudge/authcore/internal/auth"
	"github.com/travelnudge/authcore/pkg/errutil"
)

const internalErrorMessage = "internal server error"

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

type messageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type authBody struct {
	Success     bool             `json:"success"`
	Message     string           `json:"message"`
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresAt   string           `json:"expires_at"`
	User        auth.AccountView `json:"user"`
}

// statusByCode maps error codes that are safe to show callers to a status.
// Any other code is a 500 with a generic message.
var statusByCode = map[string]int{
	auth.CodeValidation:          http.StatusBadRequest,
	auth.CodeDuplicateIdentity:   http.StatusBadRequest,
	auth.CodeTokenInvalid:        http.StatusBadRequest,
	auth.CodeTokenExpired:        http.StatusBadRequest,
	auth.CodeAccountDeactivated:  http.StatusBadRequest,
	auth.CodeProviderUnsupported: http.StatusBadRequest,
	auth.CodeInvalidCredentials:  http.StatusUnauthorized,
	auth.CodeUnauthorized:        http.StatusUnauthorized,
	auth.CodeAccountLocked:       http.StatusLocked,
	CodeRateLimited:              http.StatusTooManyRequests,
	auth.CodeResetDelivery:       http.StatusBadGateway,
	auth.CodeVerifyDelivery:      http.StatusBadGateway,
}

// statusFor returns the HTTP status for err and whether its message may be
// shown to the caller.
func statusFor(err error) (status int, code string, public bool) {
	code = errutil.Code(err)
	if status, ok := statusByCode[code]; ok {
		return status, code, true
	}
	return http.StatusInternalServerError, "INTERNAL", false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, public := statusFor(err)
	msg := err.Error()
	if !public {
		errutil.LogError(r.Context(), h.logger, "auth api request failed", err)
		msg = internalErrorMessage
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

func writeAuth(w http.ResponseWriter, status int, message string, result *auth.AuthResult) {
	writeJSON(w, status, authBody{
		Success:     true,
		Message:     message,
		AccessToken: result.Token,
		TokenType:   result.TokenType,
		ExpiresAt:   result.ExpiresAt.UTC().Format(timeFormat),
		User:        result.Account,
	})
}
