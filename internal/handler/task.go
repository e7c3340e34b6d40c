package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmoreland/chorepoints/internal/auth"
	"github.com/tmoreland/chorepoints/internal/ledger"
	"github.com/tmoreland/chorepoints/internal/model"
	"github.com/tmoreland/chorepoints/internal/push"
	"github.com/tmoreland/chorepoints/internal/schedule"
	"github.com/tmoreland/chorepoints/internal/store"
	"github.com/tmoreland/chorepoints/internal/websocket"
)

type TaskHandler struct {
	tasks    *store.TaskStore
	profiles *store.ProfileStore
	ledger   *ledger.Ledger
	hub      *websocket.Hub
	notifier *push.Notifier
	logger   *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, ps *store.ProfileStore, lg *ledger.Ledger, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, profiles: ps, ledger: lg, hub: hub, notifier: notifier, logger: logger}
}

func (h *TaskHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

type taskRequest struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Points           int     `json:"points"`
	Icon             string  `json:"icon"`
	Period           string  `json:"period"`
	DayType          string  `json:"day_type"`
	RequiresApproval bool    `json:"requires_approval"`
	AssignedTo       []int64 `json:"assigned_to,omitempty"`
}

func (req *taskRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required"
	}
	if req.Points < 0 {
		return "points must not be negative"
	}
	if req.Period == "" {
		req.Period = model.PeriodAnytime
	}
	if req.Period != model.PeriodMorning && req.Period != model.PeriodEvening && req.Period != model.PeriodAnytime {
		return "invalid period"
	}
	if req.DayType == "" {
		req.DayType = model.DayTypeAnyDay
	}
	if req.DayType != model.DayTypeAnyDay && req.DayType != model.DayTypeWeekday && req.DayType != model.DayTypeWeekend {
		return "invalid day_type"
	}
	return ""
}

// Create handles POST /api/tasks (parents only).
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	familyID := auth.FamilyID(r.Context())
	task, err := h.tasks.Create(familyID, req.Title, req.Description, req.Points, req.Icon, req.Period, req.DayType, req.RequiresApproval)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	for _, childID := range req.AssignedTo {
		if err := h.assignInFamily(task.ID, childID, familyID); err != nil {
			h.logger.Warn("assign task", "task_id", task.ID, "child_id", childID, "error", err)
		}
	}

	h.broadcast(familyID, websocket.NewMessage("task", "created", task.ID, nil))
	writeJSON(w, http.StatusCreated, task)
}

// List handles GET /api/tasks, all active tasks in the caller's family.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListByFamily(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// ListMine handles GET /api/tasks/mine, the caller's assigned tasks that
// are due today. Weekday and weekend tasks drop out on days they do not
// apply to.
func (h *TaskHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListAssigned(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list assigned tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	now := time.Now()
	due := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if schedule.TaskAppliesOn(task.DayType, now) {
			due = append(due, task)
		}
	}
	writeJSON(w, http.StatusOK, due)
}

// Update handles PUT /api/tasks/{id} (parents only).
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.getFamilyTask(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	task, err := h.tasks.Update(id, req.Title, req.Description, req.Points, req.Icon, req.Period, req.DayType, req.RequiresApproval)
	if err != nil {
		h.logger.Error("update task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("task", "updated", id, nil))
	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/{id} (parents only). Tasks are
// deactivated, not removed, so history keeps its references.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.getFamilyTask(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := h.tasks.Deactivate(id); err != nil {
		h.logger.Error("deactivate task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("task", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type assignRequest struct {
	ChildID int64 `json:"child_id"`
}

// Assign handles POST /api/tasks/{id}/assign (parents only).
func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	h.changeAssignment(w, r, true)
}

// Unassign handles POST /api/tasks/{id}/unassign (parents only).
func (h *TaskHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	h.changeAssignment(w, r, false)
}

func (h *TaskHandler) changeAssignment(w http.ResponseWriter, r *http.Request, assign bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.getFamilyTask(r, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	familyID := auth.FamilyID(r.Context())
	if assign {
		err = h.assignInFamily(id, req.ChildID, familyID)
	} else {
		err = h.tasks.Unassign(id, req.ChildID)
	}
	if err != nil {
		if err == errNotInFamily {
			writeError(w, http.StatusBadRequest, "child not in family")
			return
		}
		h.logger.Error("change assignment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to change assignment")
		return
	}

	h.broadcast(familyID, websocket.NewMessage("task", "assignment_changed", id, map[string]any{"child_id": req.ChildID}))
	w.WriteHeader(http.StatusNoContent)
}

// Complete handles POST /api/tasks/{id}/complete.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	actor := actorFrom(r)
	res, err := h.ledger.CompleteTask(r.Context(), id, actor, time.Now())
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	if res.Status == "pending_approval" {
		h.broadcast(actor.FamilyID, websocket.NewMessage("approval", "requested", res.ApprovalID, map[string]any{"task_id": id, "child_id": actor.ProfileID}))
		h.notifyApprovalRequested(r, actor, id)
	} else {
		h.broadcast(actor.FamilyID, websocket.NewMessage("task", "completed", id, map[string]any{"child_id": actor.ProfileID}))
	}

	writeJSON(w, http.StatusOK, res)
}

// Uncomplete handles POST /api/tasks/{id}/uncomplete.
func (h *TaskHandler) Uncomplete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	actor := actorFrom(r)
	res, err := h.ledger.UncompleteTask(r.Context(), id, actor, time.Now())
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	h.broadcast(actor.FamilyID, websocket.NewMessage("task", "uncompleted", id, map[string]any{"child_id": actor.ProfileID}))
	writeJSON(w, http.StatusOK, res)
}

func (h *TaskHandler) notifyApprovalRequested(r *http.Request, actor ledger.Actor, taskID int64) {
	if h.notifier == nil {
		return
	}
	task, err := h.tasks.GetByID(taskID)
	if err != nil || task == nil {
		return
	}
	child, err := h.profiles.GetByID(actor.ProfileID)
	if err != nil || child == nil {
		return
	}
	h.notifier.ApprovalRequested(r.Context(), actor.FamilyID, child.FirstName, task.Title)
}

func (h *TaskHandler) getFamilyTask(r *http.Request, id int64) (*model.Task, error) {
	task, err := h.tasks.GetByID(id)
	if err != nil {
		return nil, err
	}
	if task == nil || task.FamilyID != auth.FamilyID(r.Context()) {
		return nil, nil
	}
	return task, nil
}

func (h *TaskHandler) assignInFamily(taskID, childID, familyID int64) error {
	child, err := h.profiles.GetByID(childID)
	if err != nil {
		return err
	}
	if child == nil || child.FamilyID != familyID {
		return errNotInFamily
	}
	return h.tasks.Assign(taskID, childID)
}
