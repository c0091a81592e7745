package memory

import (
	"context"
	"testing"

	"blitz-trivia-service/internal/domain"
)

func TestLeaderboardStoreOrdersByScoreThenStreak(t *testing.T) {
	s := NewLeaderboardStore()
	ctx := context.Background()
	for _, e := range []domain.LeaderboardEntry{
		{Fid: 1, Username: "a", Score: 10, Streak: 1},
		{Fid: 2, Username: "b", Score: 30, Streak: 1},
		{Fid: 3, Username: "c", Score: 20, Streak: 5},
		{Fid: 4, Username: "d", Score: 20, Streak: 9},
	} {
		if err := s.Upsert(ctx, e); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	top, _ := s.Top(ctx, 3)
	want := []int64{2, 4, 3}
	if len(top) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(top))
	}
	for i, fid := range want {
		if top[i].Fid != fid {
			t.Fatalf("position %d: want fid %d, got %d", i, fid, top[i].Fid)
		}
	}
}

func TestLeaderboardStoreUpsertReplaces(t *testing.T) {
	s := NewLeaderboardStore()
	ctx := context.Background()
	_ = s.Upsert(ctx, domain.LeaderboardEntry{Fid: 1, Username: "a", Score: 50, Streak: 5})
	_ = s.Upsert(ctx, domain.LeaderboardEntry{Fid: 1, Username: "a", Score: 5, Streak: 0})
	top, _ := s.Top(ctx, 10)
	if len(top) != 1 || top[0].Score != 5 {
		t.Fatalf("expected wholesale replace, got %+v", top)
	}
}
