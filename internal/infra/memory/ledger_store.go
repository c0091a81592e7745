package memory

import (
	"context"
	"sync"
	"time"

	"blitz-trivia-service/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerStore keeps pending balances in a map.
type LedgerStore struct {
	mu     sync.Mutex
	claims map[int64]domain.PendingClaim
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{claims: make(map[int64]domain.PendingClaim)}
}

func (s *LedgerStore) Add(_ context.Context, fid int64, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.claims[fid]
	c.Fid = fid
	c.Amount = c.Amount.Add(amount)
	c.UpdatedAt = at
	s.claims[fid] = c
	return c.Amount, nil
}

func (s *LedgerStore) Get(_ context.Context, fid int64) (domain.PendingClaim, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[fid]
	return c, ok, nil
}

func (s *LedgerStore) Debit(_ context.Context, fid int64, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[fid]
	if !ok || c.Amount.LessThan(amount) {
		return decimal.Zero, domain.ErrNoPendingBalance
	}
	c.Amount = c.Amount.Sub(amount)
	if c.Amount.Sign() <= 0 {
		delete(s.claims, fid)
		return decimal.Zero, nil
	}
	c.UpdatedAt = at
	s.claims[fid] = c
	return c.Amount, nil
}
