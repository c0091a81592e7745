package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blitz-trivia-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// PendingClaimRow is the pending_claims table.
type PendingClaimRow struct {
	bun.BaseModel `bun:"table:pending_claims,alias:pc"`

	Fid       int64           `bun:"fid,pk"`
	Amount    decimal.Decimal `bun:"amount,type:numeric,notnull"`
	UpdatedAt time.Time       `bun:"updated_at,notnull"`
}

func (r PendingClaimRow) toDomain() domain.PendingClaim {
	return domain.PendingClaim{Fid: r.Fid, Amount: r.Amount, UpdatedAt: r.UpdatedAt}
}

// LedgerStore keeps pending balances in Postgres through bun.
type LedgerStore struct {
	db *bun.DB
}

func NewLedgerStore(db *bun.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Add upserts the balance in one statement so concurrent adds accumulate.
func (s *LedgerStore) Add(ctx context.Context, fid int64, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	row := &PendingClaimRow{Fid: fid, Amount: amount, UpdatedAt: at}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (fid) DO UPDATE").
		Set("amount = pc.amount + EXCLUDED.amount").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("amount").
		Exec(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("add pending: %w", err)
	}
	return row.Amount, nil
}

func (s *LedgerStore) Get(ctx context.Context, fid int64) (domain.PendingClaim, bool, error) {
	row := new(PendingClaimRow)
	err := s.db.NewSelect().Model(row).Where("fid = ?", fid).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PendingClaim{}, false, nil
	}
	if err != nil {
		return domain.PendingClaim{}, false, fmt.Errorf("get pending: %w", err)
	}
	return row.toDomain(), true, nil
}

// Debit locks the row, subtracts amount and deletes the row once it reaches zero.
func (s *LedgerStore) Debit(ctx context.Context, fid int64, amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	rest := decimal.Zero
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(PendingClaimRow)
		err := tx.NewSelect().Model(row).Where("fid = ?", fid).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNoPendingBalance
		}
		if err != nil {
			return err
		}
		if row.Amount.LessThan(amount) {
			return domain.ErrNoPendingBalance
		}
		rest = row.Amount.Sub(amount)
		if rest.Sign() <= 0 {
			_, err = tx.NewDelete().Model(row).WherePK().Exec(ctx)
			return err
		}
		row.Amount = rest
		row.UpdatedAt = at
		_, err = tx.NewUpdate().Model(row).Column("amount", "updated_at").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return rest, nil
}
