package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"blitz-trivia-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	leaderboardRankKey    = "leaderboard:rank"
	leaderboardEntriesKey = "leaderboard:entries"
	leaderboardSeqKey     = "leaderboard:seq"
	leaderboardCounterKey = "leaderboard:counter"

	// streak occupies the low digits of the rank score so one ZSET orders by
	// score, then streak.
	streakSlots = 1_000_000
)

// LeaderboardStore ranks players in a sorted set and keeps the full entry in a
// hash keyed by the same member.
//
// Each fid gets an insertion sequence on its first upsert and its member is
// that sequence inverted and zero padded. ZREVRANGE breaks equal rank scores
// by member descending, so full ties list the earliest player first, like the
// in-memory store. Rank scores are exact up to 2^53, i.e. about 9e9 points;
// above that streak ties are no longer distinguished.
type LeaderboardStore struct {
	client *redis.Client
}

func NewLeaderboardStore(client *redis.Client) *LeaderboardStore {
	return &LeaderboardStore{client: client}
}

func rankScore(score, streak int) float64 {
	if streak >= streakSlots {
		streak = streakSlots - 1
	}
	return float64(score)*streakSlots + float64(streak)
}

func (s *LeaderboardStore) Upsert(ctx context.Context, entry domain.LeaderboardEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	member, err := s.member(ctx, entry.Fid)
	if err != nil {
		return fmt.Errorf("upsert leaderboard %d: %w", entry.Fid, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, leaderboardRankKey, redis.Z{Score: rankScore(entry.Score, entry.Streak), Member: member})
		pipe.HSet(ctx, leaderboardEntriesKey, member, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert leaderboard %d: %w", entry.Fid, err)
	}
	return nil
}

func (s *LeaderboardStore) Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if n <= 0 {
		return []domain.LeaderboardEntry{}, nil
	}
	// ZREVRANGE returns highest to lowest
	members, err := s.client.ZRevRange(ctx, leaderboardRankKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard ranking: %w", err)
	}
	if len(members) == 0 {
		return []domain.LeaderboardEntry{}, nil
	}
	values, err := s.client.HMGet(ctx, leaderboardEntriesKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard entries: %w", err)
	}
	out := make([]domain.LeaderboardEntry, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var e domain.LeaderboardEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode leaderboard entry %s: %w", members[i], err)
		}
		out = append(out, e)
	}
	return out, nil
}

// member returns the sorted-set member for fid, assigning the next insertion
// sequence the first time fid is seen.
func (s *LeaderboardStore) member(ctx context.Context, fid int64) (string, error) {
	field := strconv.FormatInt(fid, 10)
	seq, err := s.client.HGet(ctx, leaderboardSeqKey, field).Int64()
	if errors.Is(err, redis.Nil) {
		var next int64
		if next, err = s.client.Incr(ctx, leaderboardCounterKey).Result(); err != nil {
			return "", err
		}
		// a concurrent first upsert of the same fid may win; reread either way
		if err = s.client.HSetNX(ctx, leaderboardSeqKey, field, next).Err(); err != nil {
			return "", err
		}
		seq, err = s.client.HGet(ctx, leaderboardSeqKey, field).Int64()
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%019d", math.MaxInt64-seq), nil
}
