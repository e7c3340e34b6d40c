package store

import (
	"testing"

	"github.com/tmoreland/chorepoints/internal/database"
	"github.com/tmoreland/chorepoints/internal/model"
)

func setupFamilyTestDB(t *testing.T) (*FamilyStore, *ProfileStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewFamilyStore(db), NewProfileStore(db)
}

func TestFamilyCreateAndJoinCode(t *testing.T) {
	families, _ := setupFamilyTestDB(t)

	fam, err := families.Create("Moreland", "ABCD2345")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	byCode, err := families.GetByJoinCode("ABCD2345")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if byCode == nil || byCode.ID != fam.ID {
		t.Fatalf("byCode = %+v", byCode)
	}

	missing, err := families.GetByJoinCode("NOPE9999")
	if err != nil {
		t.Fatalf("get missing code: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil, got %+v", missing)
	}
}

func TestFamilySetAdmin(t *testing.T) {
	families, profiles := setupFamilyTestDB(t)

	fam, _ := families.Create("Moreland", "ABCD2345")
	admin, err := profiles.Create(fam.ID, "a@example.com", "x", "A", "", model.RoleAdmin)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}

	if err := families.SetAdmin(fam.ID, admin.ID); err != nil {
		t.Fatalf("set admin: %v", err)
	}

	got, err := families.GetByID(fam.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AdminID == nil || *got.AdminID != admin.ID {
		t.Errorf("admin_id = %v, want %d", got.AdminID, admin.ID)
	}
}
