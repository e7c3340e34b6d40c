package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tmoreland/chorepoints/internal/auth"
	"github.com/tmoreland/chorepoints/internal/ledger"
	"github.com/tmoreland/chorepoints/internal/model"
	"github.com/tmoreland/chorepoints/internal/push"
	"github.com/tmoreland/chorepoints/internal/store"
	"github.com/tmoreland/chorepoints/internal/websocket"
)

type ApprovalHandler struct {
	approvals *store.ApprovalStore
	tasks     *store.TaskStore
	ledger    *ledger.Ledger
	hub       *websocket.Hub
	notifier  *push.Notifier
	logger    *slog.Logger
}

func NewApprovalHandler(as *store.ApprovalStore, ts *store.TaskStore, lg *ledger.Ledger, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *ApprovalHandler {
	return &ApprovalHandler{approvals: as, tasks: ts, ledger: lg, hub: hub, notifier: notifier, logger: logger}
}

// ListPending handles GET /api/approvals/pending (parents only).
func (h *ApprovalHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	approvals, err := h.approvals.ListPendingByFamily(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list pending approvals", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list approvals")
		return
	}
	if approvals == nil {
		approvals = []model.ApprovalRequest{}
	}
	writeJSON(w, http.StatusOK, approvals)
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

// Approve handles POST /api/approvals/{id}/approve (parents only).
func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, ledger.Approve)
}

// Deny handles POST /api/approvals/{id}/deny (parents only).
func (h *ApprovalHandler) Deny(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, ledger.Deny)
}

func (h *ApprovalHandler) resolve(w http.ResponseWriter, r *http.Request, decision ledger.Decision) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req resolveRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	actor := actorFrom(r)
	res, err := h.ledger.ResolveApproval(r.Context(), id, actor, decision, req.Notes)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(actor.FamilyID, websocket.NewMessage("approval", res.Status, id, map[string]any{
			"task_id":  res.TaskID,
			"child_id": res.ChildID,
		}))
	}
	h.notifyResolved(r, res, decision)

	writeJSON(w, http.StatusOK, res)
}

func (h *ApprovalHandler) notifyResolved(r *http.Request, res *ledger.ResolutionResult, decision ledger.Decision) {
	if h.notifier == nil {
		return
	}
	task, err := h.tasks.GetByID(res.TaskID)
	if err != nil || task == nil {
		return
	}
	h.notifier.ApprovalResolved(r.Context(), res.ChildID, task.Title, decision == ledger.Approve, res.PointsAwarded)
}
