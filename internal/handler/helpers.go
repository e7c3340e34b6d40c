package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tmoreland/chorepoints/internal/auth"
	"github.com/tmoreland/chorepoints/internal/ledger"
)

var errNotInFamily = errors.New("profile not in family")

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// actorFrom builds the ledger actor for the authenticated user.
func actorFrom(r *http.Request) ledger.Actor {
	ac, _ := auth.FromContext(r.Context())
	return ledger.Actor{ProfileID: ac.UserID, FamilyID: ac.FamilyID, Role: ac.Role}
}

// writeLedgerError maps ledger sentinels to HTTP statuses. Unrecognized
// errors become a 500 with a generic message.
func writeLedgerError(w http.ResponseWriter, err error) {
	var ipe *ledger.InsufficientPointsError
	if errors.As(err, &ipe) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "insufficient points",
			"required":  ipe.Required,
			"available": ipe.Available,
		})
		return
	}

	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ledger.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, ledger.ErrAlreadyCompleted),
		errors.Is(err, ledger.ErrAlreadyPending),
		errors.Is(err, ledger.ErrAlreadyResolved),
		errors.Is(err, ledger.ErrAlreadyRedeemed),
		errors.Is(err, ledger.ErrNotCompleted),
		errors.Is(err, ledger.ErrNotScheduled),
		errors.Is(err, ledger.ErrApprovalRequired):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
