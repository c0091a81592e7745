package app

import (
	"context"
	"time"

	"blitz-trivia-service/internal/domain"
)

// Leaderboard keeps each player's latest known score and streak.
type Leaderboard struct {
	repo LeaderboardRepository
	now  func() time.Time
}

func NewLeaderboard(repo LeaderboardRepository) *Leaderboard {
	return &Leaderboard{repo: repo, now: time.Now}
}

// Update replaces the player's entry wholesale.
func (b *Leaderboard) Update(ctx context.Context, fid int64, username string, score, streak int, address string) (domain.LeaderboardEntry, error) {
	if fid <= 0 || username == "" {
		return domain.LeaderboardEntry{}, domain.Validation("missing user information")
	}
	if score < 0 || streak < 0 {
		return domain.LeaderboardEntry{}, domain.Validation("score and streak must not be negative")
	}
	entry := domain.LeaderboardEntry{
		Fid:           fid,
		Username:      username,
		Score:         score,
		Streak:        streak,
		LastPlayed:    b.now().UTC(),
		WalletAddress: address,
	}
	if err := b.repo.Upsert(ctx, entry); err != nil {
		return domain.LeaderboardEntry{}, err
	}
	return entry, nil
}

// Top returns at most n entries ranked by score, then streak.
func (b *Leaderboard) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if n < 0 {
		return nil, domain.Validation("limit must not be negative")
	}
	if n == 0 {
		return []domain.LeaderboardEntry{}, nil
	}
	return b.repo.Top(ctx, n)
}
