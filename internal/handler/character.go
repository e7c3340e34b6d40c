package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tmoreland/chorepoints/internal/auth"
	"github.com/tmoreland/chorepoints/internal/model"
	"github.com/tmoreland/chorepoints/internal/store"
)

// Built-in unlockable catalog. Requirements are "<kind>_<n>" strings
// checked against the child's stats; an empty requirement is unlocked
// from the start.
var characterCatalog = []model.Character{
	{Key: "fox", Name: "Fox", Emoji: "🦊"},
	{Key: "panda", Name: "Panda", Emoji: "🐼", Requirement: "points_100"},
	{Key: "owl", Name: "Owl", Emoji: "🦉", Requirement: "streak_3"},
	{Key: "tiger", Name: "Tiger", Emoji: "🐯", Requirement: "points_500"},
	{Key: "dragon", Name: "Dragon", Emoji: "🐉", Requirement: "streak_7"},
	{Key: "unicorn", Name: "Unicorn", Emoji: "🦄", Requirement: "tasks_25"},
	{Key: "robot", Name: "Robot", Emoji: "🤖", Requirement: "tasks_100"},
}

type CharacterHandler struct {
	characters  *store.CharacterStore
	profiles    *store.ProfileStore
	completions *store.CompletionStore
	logger      *slog.Logger
}

func NewCharacterHandler(cs *store.CharacterStore, ps *store.ProfileStore, comps *store.CompletionStore, logger *slog.Logger) *CharacterHandler {
	return &CharacterHandler{characters: cs, profiles: ps, completions: comps, logger: logger}
}

type characterStatus struct {
	model.Character
	Unlocked      bool `json:"unlocked"`
	NewlyUnlocked bool `json:"newly_unlocked,omitempty"`
}

// List handles GET /api/characters. It checks the caller's current stats
// against every catalog requirement, records anything newly earned, and
// returns the catalog with unlock status.
func (h *CharacterHandler) List(w http.ResponseWriter, r *http.Request) {
	profileID := auth.UserID(r.Context())
	profile, err := h.profiles.GetByID(profileID)
	if err != nil || profile == nil {
		h.logger.Error("get profile for characters", "profile_id", profileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	completions, err := h.completions.CountByChild(profileID)
	if err != nil {
		h.logger.Error("count completions", "profile_id", profileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load characters")
		return
	}

	unlocks, err := h.characters.ListByChild(profileID)
	if err != nil {
		h.logger.Error("list unlocks", "profile_id", profileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load characters")
		return
	}
	unlocked := make(map[string]bool, len(unlocks))
	for _, u := range unlocks {
		unlocked[u.CharacterKey] = true
	}

	statuses := make([]characterStatus, 0, len(characterCatalog))
	for _, c := range characterCatalog {
		st := characterStatus{Character: c, Unlocked: unlocked[c.Key]}
		if !st.Unlocked && requirementMet(c.Requirement, profile, completions) {
			method := c.Requirement
			if method == "" {
				method = "default"
			}
			fresh, err := h.characters.Unlock(profileID, c.Key, method)
			if err != nil {
				h.logger.Error("unlock character", "profile_id", profileID, "key", c.Key, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to load characters")
				return
			}
			st.Unlocked = true
			st.NewlyUnlocked = fresh
		}
		statuses = append(statuses, st)
	}
	writeJSON(w, http.StatusOK, statuses)
}

// requirementMet parses "<kind>_<n>" requirements. Malformed strings and
// unknown kinds stay locked.
func requirementMet(req string, p *model.Profile, completions int) bool {
	if req == "" {
		return true
	}
	kind, nStr, ok := strings.Cut(req, "_")
	if !ok {
		return false
	}
	n, err := strconv.Atoi(nStr)
	if err != nil {
		return false
	}
	switch kind {
	case "streak":
		return p.CurrentStreak >= n
	case "points":
		return p.LifetimePoints >= n
	case "tasks":
		return completions >= n
	}
	return false
}
