package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"qonnectme/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details any               `json:"details,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// domainErrors is checked in order; the envelope code is the sentinel's text.
var domainErrors = []struct {
	err     error
	status  int
	message string
}{
	{domain.ErrUsernameTaken, http.StatusConflict, "username already taken"},
	{domain.ErrEmailTaken, http.StatusConflict, "email already taken"},
	{domain.ErrExternalAccountExists, http.StatusConflict, "account already linked"},
	{domain.ErrFriendshipExists, http.StatusConflict, "friend request already exists"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid login or password"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrUserDisabled, http.StatusForbidden, "user is disabled"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrNotFound, http.StatusNotFound, "not found"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "too many requests"},
	{domain.ErrUnavailable, http.StatusServiceUnavailable, "service unavailable"},
}

func WriteDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) || errors.Is(err, domain.ErrValidation) {
		body := apiError{Code: "validation_error", Message: "invalid request"}
		if verr != nil {
			body.Fields = verr.Fields
		}
		WriteJSON(w, http.StatusBadRequest, errorEnvelope{Error: body})
		return
	}

	for _, e := range domainErrors {
		if errors.Is(err, e.err) {
			WriteError(w, e.status, e.err.Error(), e.message)
			return
		}
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// writeBadJSON reports a body decodeJSON rejected.
func writeBadJSON(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		return
	}
	WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
}

// writeBadUpload reports a multipart body ParseMultipartForm rejected.
// Only an overrun of the body limit is a 413.
func writeBadUpload(w http.ResponseWriter, err error, field, tooLarge string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", tooLarge)
		return
	}
	WriteDomainError(w, domain.Invalid(field, "must be a multipart/form-data upload"))
}
