package db

import (
	"testing"
	"time"
)

func TestCreateToken(t *testing.T) {
	db := openTestDB(t)
	now := time.Unix(1700000000, 0)

	tok, err := CreateToken(db, "audit-team", time.Hour, now)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	if tok.ID == 0 {
		t.Error("token ID not assigned")
	}
	if len(tok.Token) < 25 {
		t.Errorf("token value too short: %q", tok.Token)
	}
	if !tok.Active {
		t.Error("new token not active")
	}
	if tok.ExpiresAt != now.Add(time.Hour).Unix() {
		t.Errorf("expires_at = %d, want %d", tok.ExpiresAt, now.Add(time.Hour).Unix())
	}
}

func TestCreateTokenEmptyOwner(t *testing.T) {
	db := openTestDB(t)

	_, err := CreateToken(db, "", time.Hour, time.Now())
	if err != ErrEmptyOwner {
		t.Errorf("err = %v, want ErrEmptyOwner", err)
	}
}

func TestCreateTokenDefaultTTL(t *testing.T) {
	db := openTestDB(t)
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name string
		ttl  time.Duration
	}{
		{name: "zero ttl", ttl: 0},
		{name: "negative ttl", ttl: -time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := CreateToken(db, "audit-team", tt.ttl, now)
			if err != nil {
				t.Fatalf("CreateToken failed: %v", err)
			}
			want := now.Add(DefaultTokenTTL).Unix()
			if tok.ExpiresAt != want {
				t.Errorf("expires_at = %d, want %d", tok.ExpiresAt, want)
			}
		})
	}
}

func TestGetTokenByValue(t *testing.T) {
	db := openTestDB(t)

	created, err := CreateToken(db, "audit-team", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	got, err := GetTokenByValue(db, created.Token)
	if err != nil {
		t.Fatalf("GetTokenByValue failed: %v", err)
	}
	if got == nil {
		t.Fatal("token not found")
	}
	if got.ID != created.ID || got.Owner != "audit-team" {
		t.Errorf("got %+v, want id=%d owner=audit-team", got, created.ID)
	}
}

func TestGetTokenByValueUnknown(t *testing.T) {
	db := openTestDB(t)

	got, err := GetTokenByValue(db, "doesnotexist")
	if err != nil {
		t.Fatalf("GetTokenByValue failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown token, got %+v", got)
	}
}

func TestDeactivateTokenIdempotent(t *testing.T) {
	db := openTestDB(t)

	created, err := CreateToken(db, "audit-team", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	first, err := DeactivateToken(db, created.Token)
	if err != nil {
		t.Fatalf("first DeactivateToken failed: %v", err)
	}
	if first == nil || first.Active {
		t.Fatalf("token still active after deactivation: %+v", first)
	}

	second, err := DeactivateToken(db, created.Token)
	if err != nil {
		t.Fatalf("second DeactivateToken failed: %v", err)
	}
	if second == nil || second.Active {
		t.Fatalf("second deactivation changed terminal state: %+v", second)
	}
}

func TestDeactivateTokenUnknown(t *testing.T) {
	db := openTestDB(t)

	got, err := DeactivateToken(db, "doesnotexist")
	if err != nil {
		t.Fatalf("DeactivateToken failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown token, got %+v", got)
	}
}

func TestListTokensOrderAndClamp(t *testing.T) {
	db := openTestDB(t)
	base := time.Unix(1700000000, 0)

	for i := 0; i < 3; i++ {
		if _, err := CreateToken(db, "audit-team", time.Hour, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("CreateToken failed: %v", err)
		}
	}

	tokens, err := ListTokens(db, 1, 1000000)
	if err != nil {
		t.Fatalf("ListTokens failed: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("len(tokens) = %d, want 3", len(tokens))
	}
	for i := 1; i < len(tokens); i++ {
		if tokens[i-1].CreatedAt < tokens[i].CreatedAt {
			t.Errorf("tokens not ordered by created_at descending")
		}
	}

	page2, err := ListTokens(db, 2, 2)
	if err != nil {
		t.Fatalf("ListTokens page 2 failed: %v", err)
	}
	if len(page2) != 1 {
		t.Errorf("page 2 len = %d, want 1", len(page2))
	}
}
