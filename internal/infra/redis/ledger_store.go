package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"blitz-trivia-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const maxTxRetries = 10

// LedgerStore keeps pending balances as hashes: pending:{fid} -> {amount, updated_at}.
// Amounts are decimal strings updated under WATCH so concurrent writers never
// lose an update.
type LedgerStore struct {
	client *redis.Client
}

func NewLedgerStore(client *redis.Client) *LedgerStore {
	return &LedgerStore{client: client}
}

func pendingKey(fid int64) string {
	return "pending:" + strconv.FormatInt(fid, 10)
}

func (s *LedgerStore) Add(ctx context.Context, fid int64, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.update(ctx, fid, func(cur decimal.Decimal, _ bool) (decimal.Decimal, error) {
		total = cur.Add(amount)
		return total, nil
	}, at)
	return total, err
}

func (s *LedgerStore) Debit(ctx context.Context, fid int64, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	var rest decimal.Decimal
	err := s.update(ctx, fid, func(cur decimal.Decimal, ok bool) (decimal.Decimal, error) {
		if !ok || cur.LessThan(amount) {
			return decimal.Zero, domain.ErrNoPendingBalance
		}
		rest = cur.Sub(amount)
		return rest, nil
	}, at)
	return rest, err
}

func (s *LedgerStore) Get(ctx context.Context, fid int64) (domain.PendingClaim, bool, error) {
	fields, err := s.client.HGetAll(ctx, pendingKey(fid)).Result()
	if err != nil {
		return domain.PendingClaim{}, false, err
	}
	return decodeClaim(fid, fields)
}

func decodeClaim(fid int64, fields map[string]string) (domain.PendingClaim, bool, error) {
	raw, ok := fields["amount"]
	if !ok {
		return domain.PendingClaim{}, false, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return domain.PendingClaim{}, false, fmt.Errorf("corrupt pending amount for %d: %w", fid, err)
	}
	claim := domain.PendingClaim{Fid: fid, Amount: amount}
	if ts, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		claim.UpdatedAt = ts
	}
	return claim, true, nil
}

// update applies fn to the current balance optimistically, retrying when
// another client changed the key in between. A zero result deletes the key.
func (s *LedgerStore) update(ctx context.Context, fid int64, fn func(cur decimal.Decimal, ok bool) (decimal.Decimal, error), at time.Time) error {
	key := pendingKey(fid)
	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		claim, ok, err := decodeClaim(fid, fields)
		if err != nil {
			return err
		}
		next, err := fn(claim.Amount, ok)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next.Sign() <= 0 {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.HSet(ctx, key, "amount", next.String(), "updated_at", at.UTC().Format(time.RFC3339Nano))
			return nil
		})
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("pending balance for %d: too much contention", fid)
}
