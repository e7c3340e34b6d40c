package handler

import (
	"log/slog"
	"net/http"

	"github.com/tmoreland/chorepoints/internal/auth"
	"github.com/tmoreland/chorepoints/internal/model"
	"github.com/tmoreland/chorepoints/internal/store"
)

type FamilyHandler struct {
	families *store.FamilyStore
	profiles *store.ProfileStore
	logger   *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, ps *store.ProfileStore, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{families: fs, profiles: ps, logger: logger}
}

// Mine handles GET /api/family. The join code is included only for
// parents, who share it with new members.
func (h *FamilyHandler) Mine(w http.ResponseWriter, r *http.Request) {
	family, err := h.families.GetByID(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("get family", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load family")
		return
	}
	if family == nil {
		writeError(w, http.StatusNotFound, "family not found")
		return
	}

	if !auth.IsParent(r.Context()) {
		family.JoinCode = ""
	}
	writeJSON(w, http.StatusOK, family)
}

// Members handles GET /api/family/members.
func (h *FamilyHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.profiles.ListByFamily(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list family members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.Profile{}
	}
	writeJSON(w, http.StatusOK, members)
}

// DeactivateMember handles DELETE /api/family/members/{id} (parents
// only). Profiles are deactivated, never deleted, so the ledger keeps
// its history.
func (h *FamilyHandler) DeactivateMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	member, err := h.profiles.GetByID(id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if member == nil || member.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	if member.ID == auth.UserID(r.Context()) {
		writeError(w, http.StatusBadRequest, "cannot deactivate yourself")
		return
	}

	if err := h.profiles.SetActive(id, false); err != nil {
		h.logger.Error("deactivate member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to deactivate member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
