package redis

import (
	"context"
	"testing"
	"time"

	"blitz-trivia-service/internal/domain"
)

func TestLeaderboardStoreRanksByScoreThenStreak(t *testing.T) {
	_, client := newClient(t)
	s := NewLeaderboardStore(client)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for _, e := range []domain.LeaderboardEntry{
		{Fid: 1, Username: "a", Score: 10, Streak: 1, LastPlayed: now},
		{Fid: 2, Username: "b", Score: 30, Streak: 1, LastPlayed: now},
		{Fid: 3, Username: "c", Score: 20, Streak: 5, LastPlayed: now, WalletAddress: "0xabc"},
		{Fid: 4, Username: "d", Score: 20, Streak: 9, LastPlayed: now},
	} {
		if err := s.Upsert(ctx, e); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	top, err := s.Top(ctx, 3)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	want := []int64{2, 4, 3}
	if len(top) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(top))
	}
	for i, fid := range want {
		if top[i].Fid != fid {
			t.Fatalf("position %d: want fid %d, got %d", i, fid, top[i].Fid)
		}
	}
	if top[2].WalletAddress != "0xabc" || !top[2].LastPlayed.Equal(now) {
		t.Fatalf("entry fields lost: %+v", top[2])
	}

	all, _ := s.Top(ctx, 100)
	if len(all) != 4 {
		t.Fatalf("expected all 4 entries, got %d", len(all))
	}
}

func TestLeaderboardStoreUpsertReplaces(t *testing.T) {
	_, client := newClient(t)
	s := NewLeaderboardStore(client)
	ctx := context.Background()
	_ = s.Upsert(ctx, domain.LeaderboardEntry{Fid: 1, Username: "a", Score: 50, Streak: 5})
	_ = s.Upsert(ctx, domain.LeaderboardEntry{Fid: 2, Username: "b", Score: 20, Streak: 0})
	_ = s.Upsert(ctx, domain.LeaderboardEntry{Fid: 1, Username: "a", Score: 5, Streak: 0})

	top, _ := s.Top(ctx, 10)
	if len(top) != 2 || top[0].Fid != 2 || top[1].Score != 5 {
		t.Fatalf("expected wholesale replace, got %+v", top)
	}
	empty, _ := s.Top(ctx, 0)
	if len(empty) != 0 {
		t.Fatalf("expected no entries for n=0")
	}
}

func TestLeaderboardStoreFullTiesKeepInsertionOrder(t *testing.T) {
	_, client := newClient(t)
	s := NewLeaderboardStore(client)
	ctx := context.Background()
	for _, fid := range []int64{9, 3, 12, 5} {
		if err := s.Upsert(ctx, domain.LeaderboardEntry{Fid: fid, Username: "p", Score: 40, Streak: 2}); err != nil {
			t.Fatalf("upsert %d: %v", fid, err)
		}
	}
	// a later update keeps the first-seen position
	_ = s.Upsert(ctx, domain.LeaderboardEntry{Fid: 9, Username: "p", Score: 40, Streak: 2})

	top, err := s.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	want := []int64{9, 3, 12, 5}
	if len(top) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(top))
	}
	for i, fid := range want {
		if top[i].Fid != fid {
			t.Fatalf("position %d: want fid %d, got %d", i, fid, top[i].Fid)
		}
	}
}
