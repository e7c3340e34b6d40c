package store

import (
	"testing"

	"github.com/tmoreland/chorepoints/internal/database"
	"github.com/tmoreland/chorepoints/internal/model"
)

func setupTaskTestDB(t *testing.T) (*TaskStore, *ProfileStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	families := NewFamilyStore(db)
	fam, err := families.Create("Test Family", "CODE1234")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	return NewTaskStore(db), NewProfileStore(db), fam.ID
}

func TestTaskCreateAndGet(t *testing.T) {
	tasks, _, familyID := setupTaskTestDB(t)

	task, err := tasks.Create(familyID, "Feed the dog", "Morning and evening", 50, "🐕", model.PeriodMorning, model.DayTypeAnyDay, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected task id")
	}

	got, err := tasks.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected task")
	}
	if got.Title != "Feed the dog" || got.Points != 50 || got.Period != model.PeriodMorning {
		t.Errorf("task = %+v", got)
	}
	if !got.Active {
		t.Error("new tasks should be active")
	}
	if got.RequiresApproval {
		t.Error("requires_approval should be false")
	}
}

func TestTaskGetMissing(t *testing.T) {
	tasks, _, _ := setupTaskTestDB(t)
	got, err := tasks.GetByID(999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestTaskListByFamilyExcludesInactive(t *testing.T) {
	tasks, _, familyID := setupTaskTestDB(t)

	a, _ := tasks.Create(familyID, "Keep", "", 10, "", model.PeriodAnytime, model.DayTypeAnyDay, false)
	b, _ := tasks.Create(familyID, "Drop", "", 10, "", model.PeriodAnytime, model.DayTypeAnyDay, false)

	if err := tasks.Deactivate(b.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	list, err := tasks.ListByFamily(familyID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Errorf("list = %+v, want only task %d", list, a.ID)
	}
}

func TestTaskAssignments(t *testing.T) {
	tasks, profiles, familyID := setupTaskTestDB(t)

	child, err := profiles.Create(familyID, "kid@example.com", "x", "Riley", "", model.RoleChild)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	task, _ := tasks.Create(familyID, "Dishes", "", 10, "", model.PeriodAnytime, model.DayTypeAnyDay, false)

	if err := tasks.Assign(task.ID, child.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Assigning twice is a no-op
	if err := tasks.Assign(task.ID, child.ID); err != nil {
		t.Fatalf("re-assign: %v", err)
	}

	ok, err := tasks.IsAssigned(task.ID, child.ID)
	if err != nil || !ok {
		t.Fatalf("IsAssigned = %v, %v, want true", ok, err)
	}

	assigned, err := tasks.ListAssigned(child.ID)
	if err != nil {
		t.Fatalf("list assigned: %v", err)
	}
	if len(assigned) != 1 || assigned[0].ID != task.ID {
		t.Errorf("assigned = %+v", assigned)
	}

	if err := tasks.Unassign(task.ID, child.ID); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	ok, _ = tasks.IsAssigned(task.ID, child.ID)
	if ok {
		t.Error("still assigned after unassign")
	}
}

func TestTaskUpdate(t *testing.T) {
	tasks, _, familyID := setupTaskTestDB(t)

	task, _ := tasks.Create(familyID, "Old title", "", 10, "", model.PeriodAnytime, model.DayTypeAnyDay, false)

	updated, err := tasks.Update(task.ID, "New title", "desc", 25, "⭐", model.PeriodEvening, model.DayTypeWeekend, true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "New title" || updated.Points != 25 || !updated.RequiresApproval {
		t.Errorf("updated = %+v", updated)
	}
	if updated.DayType != model.DayTypeWeekend {
		t.Errorf("day_type = %q", updated.DayType)
	}
}
