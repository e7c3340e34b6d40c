// Package ledger owns the per-child, per-day point bookkeeping: task
// completion, the approval workflow, reward redemption, and streaks.
//
// Every operation runs in a single SQL transaction. The (child, date)
// daily_progress row and the target approval row are the unit of
// isolation: set-membership checks inside the transaction guarantee
// at-most-once point award per (task, child, date).
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmoreland/chorepoints/internal/model"
	"github.com/tmoreland/chorepoints/internal/schedule"
)

// BalancePolicy selects which balance gates reward redemption.
type BalancePolicy string

const (
	// BalanceLifetime gates redemption on the child's lifetime point
	// total. This is the canonical policy.
	BalanceLifetime BalancePolicy = "lifetime"
	// BalanceDaily gates redemption on the day's total instead.
	BalanceDaily BalancePolicy = "daily"
)

// Config holds the explicit policy choices the ledger supports.
type Config struct {
	// RedemptionBalance picks the balance checked by RedeemReward.
	RedemptionBalance BalancePolicy
	// ParentsCompleteUnassigned lets parent-role actors complete tasks
	// they are not assigned to. Children always need an assignment.
	ParentsCompleteUnassigned bool
}

// Actor is the resolved identity a ledger operation acts for. It is
// always passed explicitly; the ledger never reads ambient request state.
type Actor struct {
	ProfileID int64
	FamilyID  int64
	Role      string
}

func (a Actor) isParent() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleParent
}

// Decision is a parent's ruling on a pending approval.
type Decision string

const (
	Approve Decision = "approve"
	Deny    Decision = "deny"
)

// CompletionResult reports the outcome of CompleteTask.
type CompletionResult struct {
	Status         string `json:"status"` // "completed" or "pending_approval"
	TaskID         int64  `json:"task_id"`
	Points         int    `json:"points"`
	DailyTotal     int    `json:"daily_total"`
	LifetimePoints int    `json:"lifetime_points"`
	ApprovalID     int64  `json:"approval_id,omitempty"`
}

// ResolutionResult reports the outcome of ResolveApproval.
type ResolutionResult struct {
	Status         string `json:"status"` // "approved" or "denied"
	TaskID         int64  `json:"task_id"`
	ChildID        int64  `json:"child_id"`
	PointsAwarded  int    `json:"points_awarded"`
	DailyTotal     int    `json:"daily_total"`
	LifetimePoints int    `json:"lifetime_points"`
}

// RedemptionResult reports the outcome of RedeemReward.
type RedemptionResult struct {
	RewardID       int64  `json:"reward_id"`
	RewardName     string `json:"reward_name"`
	PointsSpent    int    `json:"points_spent"`
	DailyTotal     int    `json:"daily_total"`
	LifetimePoints int    `json:"lifetime_points"`
}

type Ledger struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Ledger {
	if cfg.RedemptionBalance == "" {
		cfg.RedemptionBalance = BalanceLifetime
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{db: db, cfg: cfg, logger: logger}
}

// CompleteTask registers a completion of taskID by the actor for the given
// day. Tasks that require approval go to the pending set and open an
// approval request; everything else awards points immediately.
func (l *Ledger) CompleteTask(ctx context.Context, taskID int64, actor Actor, today time.Time) (*CompletionResult, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	task, err := l.taskForActor(tx, taskID, actor)
	if err != nil {
		return nil, err
	}
	if !schedule.TaskAppliesOn(task.DayType, today) {
		return nil, ErrNotScheduled
	}

	if !actor.isParent() || !l.cfg.ParentsCompleteUnassigned {
		assigned, err := isAssigned(tx, taskID, actor.ProfileID)
		if err != nil {
			return nil, err
		}
		if !assigned {
			return nil, ErrNotAuthorized
		}
	}

	dateKey := today.Format(schedule.DateKey)
	progress, err := getOrCreateProgress(tx, actor.ProfileID, dateKey)
	if err != nil {
		return nil, err
	}

	if progress.Completed.Contains(taskID) {
		return nil, ErrAlreadyCompleted
	}
	if progress.Pending.Contains(taskID) {
		return nil, ErrAlreadyPending
	}

	if task.RequiresApproval {
		result, err := tx.Exec(
			`INSERT INTO task_approvals (task_id, child_id, date_for, status) VALUES (?, ?, ?, ?)`,
			taskID, actor.ProfileID, dateKey, model.ApprovalPending,
		)
		if err != nil {
			return nil, fmt.Errorf("insert approval: %w", err)
		}
		approvalID, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}

		progress.Pending.Add(taskID)
		if err := saveProgress(tx, progress); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}

		l.logger.Info("completion pending approval",
			"task_id", taskID, "child_id", actor.ProfileID, "approval_id", approvalID)

		return &CompletionResult{
			Status:     "pending_approval",
			TaskID:     taskID,
			Points:     task.Points,
			DailyTotal: progress.TotalPoints,
			ApprovalID: approvalID,
		}, nil
	}

	progress.Completed.Add(taskID)
	progress.TotalPoints += task.Points
	if err := saveProgress(tx, progress); err != nil {
		return nil, err
	}

	lifetime, err := addLifetimePoints(tx, actor.ProfileID, task.Points)
	if err != nil {
		return nil, err
	}
	if err := insertCompletionSnapshot(tx, task, actor.ProfileID, dateKey, false); err != nil {
		return nil, err
	}
	if err := updateStreak(tx, actor.ProfileID, schedule.StartOfDay(today)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	l.logger.Info("task completed",
		"task_id", taskID, "child_id", actor.ProfileID, "points", task.Points)

	return &CompletionResult{
		Status:         "completed",
		TaskID:         taskID,
		Points:         task.Points,
		DailyTotal:     progress.TotalPoints,
		LifetimePoints: lifetime,
	}, nil
}

// UncompleteTask reverses a same-day completion of a task that does not
// require approval. Lifetime points are floored at zero; the floor is the
// accepted approximation for children whose balance was already spent.
func (l *Ledger) UncompleteTask(ctx context.Context, taskID int64, actor Actor, today time.Time) (*CompletionResult, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	task, err := l.taskForActor(tx, taskID, actor)
	if err != nil {
		return nil, err
	}
	if task.RequiresApproval {
		return nil, ErrApprovalRequired
	}

	dateKey := today.Format(schedule.DateKey)
	progress, err := getProgress(tx, actor.ProfileID, dateKey)
	if err != nil {
		return nil, err
	}
	if progress == nil || !progress.Completed.Contains(taskID) {
		return nil, ErrNotCompleted
	}

	progress.Completed.Remove(taskID)
	progress.TotalPoints -= task.Points
	if err := saveProgress(tx, progress); err != nil {
		return nil, err
	}

	lifetime, err := addLifetimePoints(tx, actor.ProfileID, -task.Points)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(
		`DELETE FROM task_completions WHERE child_id = ? AND task_id = ? AND completion_date = ?`,
		actor.ProfileID, taskID, dateKey,
	); err != nil {
		return nil, fmt.Errorf("delete completion snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	l.logger.Info("task uncompleted",
		"task_id", taskID, "child_id", actor.ProfileID, "points", task.Points)

	return &CompletionResult{
		Status:         "uncompleted",
		TaskID:         taskID,
		Points:         task.Points,
		DailyTotal:     progress.TotalPoints,
		LifetimePoints: lifetime,
	}, nil
}

// ResolveApproval applies a parent's decision to a pending approval
// request. Both branches are terminal: a second resolution of the same
// request fails with ErrAlreadyResolved and moves no points.
func (l *Ledger) ResolveApproval(ctx context.Context, approvalID int64, resolver Actor, decision Decision, notes string) (*ResolutionResult, error) {
	if !resolver.isParent() {
		return nil, ErrNotAuthorized
	}
	if decision != Approve && decision != Deny {
		return nil, fmt.Errorf("unknown decision %q", decision)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	approval, err := getApproval(tx, approvalID)
	if err != nil {
		return nil, err
	}
	if approval == nil {
		return nil, ErrNotFound
	}

	childFamily, err := profileFamily(tx, approval.ChildID)
	if err != nil {
		return nil, err
	}
	if childFamily != resolver.FamilyID {
		return nil, ErrNotAuthorized
	}
	if approval.Status != model.ApprovalPending {
		return nil, ErrAlreadyResolved
	}

	task, err := getTask(tx, approval.TaskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}

	status := model.ApprovalApproved
	if decision == Deny {
		status = model.ApprovalDenied
	}

	// Compare-and-swap on status so two racing resolutions cannot both
	// award points.
	res, err := tx.Exec(
		`UPDATE task_approvals SET status = ?, notes = ?, resolved_by = ?, resolved_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		status, notes, resolver.ProfileID, approvalID, model.ApprovalPending,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve approval: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, ErrAlreadyResolved
	}

	progress, err := getOrCreateProgress(tx, approval.ChildID, approval.DateFor)
	if err != nil {
		return nil, err
	}
	progress.Pending.Remove(approval.TaskID)

	result := &ResolutionResult{
		Status:  status,
		TaskID:  approval.TaskID,
		ChildID: approval.ChildID,
	}

	if decision == Approve {
		progress.Completed.Add(approval.TaskID)
		progress.TotalPoints += task.Points
		result.PointsAwarded = task.Points

		lifetime, err := addLifetimePoints(tx, approval.ChildID, task.Points)
		if err != nil {
			return nil, err
		}
		result.LifetimePoints = lifetime

		if err := insertCompletionSnapshot(tx, task, approval.ChildID, approval.DateFor, true); err != nil {
			return nil, err
		}
		if day, perr := time.Parse(schedule.DateKey, approval.DateFor); perr == nil {
			if err := updateStreak(tx, approval.ChildID, day); err != nil {
				return nil, err
			}
		}
	}

	if err := saveProgress(tx, progress); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	result.DailyTotal = progress.TotalPoints
	l.logger.Info("approval resolved",
		"approval_id", approvalID, "decision", string(decision),
		"child_id", approval.ChildID, "resolved_by", resolver.ProfileID)

	return result, nil
}

// RedeemReward spends points on a reward. The gating balance is the
// configured policy; on success the cost comes off both the lifetime total
// and the day's total, and the reward joins the day's redeemed set.
func (l *Ledger) RedeemReward(ctx context.Context, rewardID int64, actor Actor, today time.Time) (*RedemptionResult, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	reward, err := getReward(tx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil || reward.FamilyID != actor.FamilyID || !reward.Active {
		return nil, ErrNotFound
	}

	dateKey := today.Format(schedule.DateKey)
	progress, err := getOrCreateProgress(tx, actor.ProfileID, dateKey)
	if err != nil {
		return nil, err
	}
	if progress.Redeemed.Contains(rewardID) {
		return nil, ErrAlreadyRedeemed
	}

	lifetime, err := lifetimePoints(tx, actor.ProfileID)
	if err != nil {
		return nil, err
	}

	available := lifetime
	if l.cfg.RedemptionBalance == BalanceDaily {
		available = progress.TotalPoints
	}
	if available < reward.Cost {
		return nil, &InsufficientPointsError{Required: reward.Cost, Available: available}
	}

	progress.Redeemed.Add(rewardID)
	progress.TotalPoints -= reward.Cost
	if err := saveProgress(tx, progress); err != nil {
		return nil, err
	}

	newLifetime, err := addLifetimePoints(tx, actor.ProfileID, -reward.Cost)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	l.logger.Info("reward redeemed",
		"reward_id", rewardID, "child_id", actor.ProfileID, "cost", reward.Cost)

	return &RedemptionResult{
		RewardID:       rewardID,
		RewardName:     reward.Name,
		PointsSpent:    reward.Cost,
		DailyTotal:     progress.TotalPoints,
		LifetimePoints: newLifetime,
	}, nil
}

// taskForActor loads a task and checks it is active and visible to the
// actor's family. Out-of-family tasks surface as not found.
func (l *Ledger) taskForActor(tx *sql.Tx, taskID int64, actor Actor) (*model.Task, error) {
	task, err := getTask(tx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil || task.FamilyID != actor.FamilyID || !task.Active {
		return nil, ErrNotFound
	}
	return task, nil
}
