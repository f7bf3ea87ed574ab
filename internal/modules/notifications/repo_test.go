package notifications

import (
	"context"
	"testing"

	"github.com/SalehAhmed10/zova-app-v2-sub003/internal/shared/testdb"
)

func TestEnsureDedupesOnIdentity(t *testing.T) {
	db := testdb.Open(t, &Notification{})

	n := Notification{
		UserID:  "user-1",
		Type:    TypePayoutCompleted,
		Title:   "Payout sent",
		Body:    "£100.00 is on its way to your bank.",
		RefType: "payout",
		RefID:   "payout-1",
	}
	for i := 0; i < 3; i++ {
		if err := Ensure(context.Background(), db, n); err != nil {
			t.Fatalf("Ensure %d: %v", i+1, err)
		}
	}

	var cnt int64
	db.Model(&Notification{}).Count(&cnt)
	if cnt != 1 {
		t.Fatalf("rows = %d, want 1", cnt)
	}

	// A different ref is a different notification.
	n.RefID = "payout-2"
	if err := Ensure(context.Background(), db, n); err != nil {
		t.Fatalf("Ensure with new ref: %v", err)
	}
	db.Model(&Notification{}).Count(&cnt)
	if cnt != 2 {
		t.Fatalf("rows = %d, want 2", cnt)
	}
}

func TestListForUserNewestFirst(t *testing.T) {
	db := testdb.Open(t, &Notification{})

	for _, ref := range []string{"a", "b", "c"} {
		if err := Ensure(context.Background(), db, Notification{
			UserID: "user-1", Type: TypeBookingConfirmed, Title: "t", Body: "b",
			RefType: "booking", RefID: ref,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := ListForUser(context.Background(), db, "user-1", 2)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	other, err := ListForUser(context.Background(), db, "user-2", 10)
	if err != nil {
		t.Fatalf("ListForUser other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("foreign user sees %d rows", len(other))
	}
}
