package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rsclarke/canaryd/internal/models"
)

func insertTestEvent(t *testing.T, d *sql.DB, tokenID int64, receivedAt int64) *models.Event {
	t.Helper()
	reason := "private-range"
	e := &models.Event{
		TokenID:         tokenID,
		ReceivedAt:      receivedAt,
		Method:          "GET",
		Path:            "/c/abc",
		Headers:         "[]",
		BodyPreview:     "",
		RemoteIP:        "10.0.0.5",
		Suspicious:      true,
		SuspicionReason: &reason,
		TokenValid:      true,
	}
	if err := CreateEvent(d, e); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	return e
}

func TestCreateAndGetEvent(t *testing.T) {
	db := openTestDB(t)

	tok, err := CreateToken(db, "audit-team", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	e := insertTestEvent(t, db, tok.ID, 1700000000)
	if e.ID == 0 {
		t.Fatal("event ID not assigned")
	}

	got, err := GetEvent(db, e.ID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if got == nil {
		t.Fatal("event not found")
	}
	if got.TokenID != tok.ID || !got.Suspicious || got.SuspicionReason == nil || *got.SuspicionReason != "private-range" {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.ResolvedHostname != nil {
		t.Errorf("resolved_hostname = %v, want nil", *got.ResolvedHostname)
	}
}

func TestSetEventHostnameWritesOnce(t *testing.T) {
	db := openTestDB(t)

	tok, err := CreateToken(db, "audit-team", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	e := insertTestEvent(t, db, tok.ID, 1700000000)

	if err := SetEventHostname(db, e.ID, "host-a.internal"); err != nil {
		t.Fatalf("SetEventHostname failed: %v", err)
	}
	if err := SetEventHostname(db, e.ID, "host-b.internal"); err != nil {
		t.Fatalf("second SetEventHostname failed: %v", err)
	}

	got, err := GetEvent(db, e.ID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if got.ResolvedHostname == nil || *got.ResolvedHostname != "host-a.internal" {
		t.Errorf("resolved_hostname = %v, want host-a.internal", got.ResolvedHostname)
	}
}

func TestListEventsFilterAndOrder(t *testing.T) {
	db := openTestDB(t)

	tokA, err := CreateToken(db, "a", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	tokB, err := CreateToken(db, "b", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	insertTestEvent(t, db, tokA.ID, 100)
	insertTestEvent(t, db, tokA.ID, 300)
	insertTestEvent(t, db, tokB.ID, 200)

	all, err := ListEvents(db, 0, 1, 50)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].ReceivedAt != 300 || all[2].ReceivedAt != 100 {
		t.Errorf("events not ordered by received_at descending: %+v", all)
	}

	onlyA, err := ListEvents(db, tokA.ID, 1, 50)
	if err != nil {
		t.Fatalf("ListEvents by token failed: %v", err)
	}
	if len(onlyA) != 2 {
		t.Errorf("len(onlyA) = %d, want 2", len(onlyA))
	}

	count, err := CountEvents(db, tokA.ID)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if count != 2 {
		t.Errorf("CountEvents = %d, want 2", count)
	}
}
