package store

import (
	"testing"

	"github.com/tmoreland/chorepoints/internal/database"
	"github.com/tmoreland/chorepoints/internal/model"
)

func setupPushTestDB(t *testing.T) (*PushStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fam, err := NewFamilyStore(db).Create("Test Family", "CODE1234")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	profile, err := NewProfileStore(db).Create(fam.ID, "p@example.com", "x", "P", "", model.RoleParent)
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return NewPushStore(db), profile.ID
}

func TestPushUpsert(t *testing.T) {
	push, profileID := setupPushTestDB(t)

	first, err := push.Upsert(profileID, "https://push.example/a", "p256dh-1", "auth-1")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Same endpoint updates keys in place
	second, err := push.Upsert(profileID, "https://push.example/a", "p256dh-2", "auth-2")
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("ids differ: %d vs %d", first.ID, second.ID)
	}
	if second.P256dhKey != "p256dh-2" {
		t.Errorf("p256dh = %q", second.P256dhKey)
	}

	subs, err := push.ListByProfile(profileID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("subs = %d, want 1", len(subs))
	}
}

func TestPushDeleteByEndpoint(t *testing.T) {
	push, profileID := setupPushTestDB(t)

	push.Upsert(profileID, "https://push.example/a", "k", "a")
	if err := push.DeleteByEndpoint("https://push.example/a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	subs, _ := push.ListByProfile(profileID)
	if len(subs) != 0 {
		t.Errorf("subs = %d, want 0", len(subs))
	}
}
