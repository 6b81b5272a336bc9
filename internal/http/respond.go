package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sami2905/nexflow-backend/internal/policy"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps service and repository errors onto the response
// taxonomy. Hidden policy denials become 404 so unreadable resources are
// indistinguishable from missing ones; readable-but-forbidden becomes 403.
// Anything unrecognized gets the fallback status.
func writeDomainError(w http.ResponseWriter, err error, fallback int) {
	var denied *policy.Denied
	switch {
	case errors.As(err, &denied):
		if denied.Hidden {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusForbidden, denied.Reason)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusBadRequest, "duplicate resource")
	default:
		writeError(w, fallback, err.Error())
	}
}
