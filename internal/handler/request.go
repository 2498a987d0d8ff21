package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sakif/devpulse/internal/apperror"
	"github.com/sakif/devpulse/internal/auth"
)

// maxBodyBytes caps request bodies. Every DevPulse payload is a handful of
// short strings.
const maxBodyBytes = 64 << 10

// decodeJSON reads the request body into dst. On failure it writes a 400 and
// returns false, so handlers can simply return.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			msg = "request body is too large"
		}
		writeError(w, apperror.ValidationFailed("body", msg))
		return false
	}
	return true
}

// currentUser returns the user ID RequireAuth put in the context. It writes
// a 401 and returns false when the route was mounted without RequireAuth.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "authentication required",
		})
		return "", false
	}
	return userID, true
}

// messageResponse is the body of operations that return no resource.
type messageResponse struct {
	Message string `json:"message"`
}
