package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	goPairAuth "github.com/MrEthical07/goPairAuth"
	"github.com/MrEthical07/goPairAuth/internal/logx"
)

// ErrorMessage is the body of every error response. Message is a string, or a
// field-to-reason map for validation failures.
type ErrorMessage struct {
	URL     string `json:"url"`
	Message any    `json:"message"`
}

// writeJSON writes v with no-store caching headers.
func writeJSON(w http.ResponseWriter, code int, v any) {
	noCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func writeMessage(w http.ResponseWriter, r *http.Request, code int, msg any) {
	writeJSON(w, code, ErrorMessage{URL: requestURL(r), Message: msg})
}

// writeError maps err to a status and writes an ErrorMessage. Infrastructure
// detail is logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
		writeMessage(w, r, http.StatusBadRequest, fields)
		return
	}

	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		logx.FromContext(r.Context()).Error("request failed", "status", code, "err", err)
	}
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	writeMessage(w, r, code, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, goPairAuth.ErrAlreadyExists):
		return http.StatusBadRequest, goPairAuth.ErrAlreadyExists.Error()
	case errors.Is(err, goPairAuth.ErrInvalidRequest),
		errors.Is(err, goPairAuth.ErrPasswordReuse),
		errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, goPairAuth.ErrNotFound),
		errors.Is(err, goPairAuth.ErrBadCredentials):
		return http.StatusUnauthorized, goPairAuth.ErrBadCredentials.Error()
	case errors.Is(err, goPairAuth.ErrInvalidToken),
		errors.Is(err, errMissingToken):
		return http.StatusUnauthorized, goPairAuth.ErrInvalidToken.Error()
	case errors.Is(err, goPairAuth.ErrLoginRateLimited):
		return http.StatusTooManyRequests, goPairAuth.ErrLoginRateLimited.Error()
	case errors.Is(err, goPairAuth.ErrRegistryUnavailable),
		errors.Is(err, goPairAuth.ErrUserStoreUnavailable):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
