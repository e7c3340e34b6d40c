package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tmoreland/chorepoints/internal/auth"
	"github.com/tmoreland/chorepoints/internal/model"
	"github.com/tmoreland/chorepoints/internal/schedule"
	"github.com/tmoreland/chorepoints/internal/store"
)

type ProgressHandler struct {
	progress    *store.ProgressStore
	completions *store.CompletionStore
	profiles    *store.ProfileStore
	logger      *slog.Logger
}

func NewProgressHandler(ps *store.ProgressStore, cs *store.CompletionStore, profiles *store.ProfileStore, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{progress: ps, completions: cs, profiles: profiles, logger: logger}
}

// Today handles GET /api/progress/today[?child_id=N]. Children see their
// own day; parents may pass child_id for any child in the family.
func (h *ProgressHandler) Today(w http.ResponseWriter, r *http.Request) {
	childID, ok := h.resolveChild(w, r)
	if !ok {
		return
	}

	date := schedule.StartOfDay(time.Now()).Format(schedule.DateKey)
	progress, err := h.progress.GetByChildDate(childID, date)
	if err != nil {
		h.logger.Error("get today progress", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	if progress == nil {
		// No activity yet today, serve an empty ledger row.
		progress = &model.DailyProgress{
			ChildID:   childID,
			Date:      date,
			Completed: model.IDSet{},
			Pending:   model.IDSet{},
			Redeemed:  model.IDSet{},
		}
	}
	writeJSON(w, http.StatusOK, progress)
}

type weeklyResponse struct {
	Start       string                `json:"start"`
	End         string                `json:"end"`
	Days        []model.DailyProgress `json:"days"`
	WeekPoints  int                   `json:"week_points"`
	Completions int                   `json:"completions"`
}

// Weekly handles GET /api/progress/weekly[?child_id=N], a rollup over the
// household week (Friday through Thursday).
func (h *ProgressHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	childID, ok := h.resolveChild(w, r)
	if !ok {
		return
	}

	start, end := schedule.WeekBounds(time.Now())
	startKey := start.Format(schedule.DateKey)
	endKey := end.Format(schedule.DateKey)

	days, err := h.progress.ListRange(childID, startKey, endKey)
	if err != nil {
		h.logger.Error("list weekly progress", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	if days == nil {
		days = []model.DailyProgress{}
	}

	resp := weeklyResponse{Start: startKey, End: endKey, Days: days}
	for _, d := range days {
		resp.WeekPoints += d.TotalPoints
		resp.Completions += len(d.Completed)
	}
	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /api/progress/history[?child_id=N&days=30],
// completion snapshots over a trailing window.
func (h *ProgressHandler) History(w http.ResponseWriter, r *http.Request) {
	childID, ok := h.resolveChild(w, r)
	if !ok {
		return
	}

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = n
	}

	end := schedule.StartOfDay(time.Now())
	start := end.AddDate(0, 0, -(days - 1))

	completions, err := h.completions.ListByChildRange(childID, start.Format(schedule.DateKey), end.Format(schedule.DateKey))
	if err != nil {
		h.logger.Error("list completion history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if completions == nil {
		completions = []model.TaskCompletion{}
	}
	writeJSON(w, http.StatusOK, completions)
}

// resolveChild picks the subject of a progress query: the caller, or the
// child_id parameter when a parent asks about a family member.
func (h *ProgressHandler) resolveChild(w http.ResponseWriter, r *http.Request) (int64, bool) {
	param := r.URL.Query().Get("child_id")
	if param == "" {
		return auth.UserID(r.Context()), true
	}

	childID, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child_id")
		return 0, false
	}
	if childID == auth.UserID(r.Context()) {
		return childID, true
	}
	if !auth.IsParent(r.Context()) {
		writeError(w, http.StatusForbidden, "not allowed")
		return 0, false
	}

	child, err := h.profiles.GetByID(childID)
	if err != nil {
		h.logger.Error("get child profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return 0, false
	}
	if child == nil || child.FamilyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "child not found")
		return 0, false
	}
	return childID, true
}
