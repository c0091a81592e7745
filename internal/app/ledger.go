package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/logger"
	"blitz-trivia-service/internal/wallet"
	"github.com/shopspring/decimal"
)

// ClaimReceipt describes a successful claim.
type ClaimReceipt struct {
	TransactionHash string          `json:"transactionHash"`
	Amount          decimal.Decimal `json:"amount"`
	Address         string          `json:"address"`
}

// PendingClaimLedger stages token rewards per user and mints them on claim.
// A balance is only debited after the mint succeeded, and only by the minted
// amount, so rewards staged while a claim is in flight are kept.
type PendingClaimLedger struct {
	store       LedgerStore
	minter      Minter
	locker      Locker
	mintTimeout time.Duration
	log         *logger.Logger
	now         func() time.Time
}

func NewPendingClaimLedger(store LedgerStore, minter Minter, locker Locker, mintTimeout time.Duration, log *logger.Logger) *PendingClaimLedger {
	return &PendingClaimLedger{
		store:       store,
		minter:      minter,
		locker:      locker,
		mintTimeout: mintTimeout,
		log:         log.With("component", "PendingClaimLedger"),
		now:         time.Now,
	}
}

// AddPending accumulates a positive amount into the user's pending balance
// and returns the new balance.
func (l *PendingClaimLedger) AddPending(ctx context.Context, fid int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if fid <= 0 {
		return decimal.Zero, domain.Validation("missing user fid")
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s is not positive", domain.ErrInvalidAmount, amount)
	}
	if !domain.ValidTokenAmount(amount) {
		return decimal.Zero, fmt.Errorf("%w: %s has more than %d decimal places", domain.ErrInvalidAmount, amount, domain.TokenDecimals)
	}
	total, err := l.store.Add(ctx, fid, amount, l.now())
	if err != nil {
		return decimal.Zero, fmt.Errorf("add pending for %d: %w", fid, err)
	}
	return total, nil
}

// GetPending returns the pending balance, zero when nothing is staged.
func (l *PendingClaimLedger) GetPending(ctx context.Context, fid int64) (decimal.Decimal, error) {
	if fid <= 0 {
		return decimal.Zero, domain.Validation("missing user fid")
	}
	claim, ok, err := l.store.Get(ctx, fid)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get pending for %d: %w", fid, err)
	}
	if !ok {
		return decimal.Zero, nil
	}
	return claim.Amount, nil
}

// Claim mints the whole pending balance to address. On mint failure the
// balance is left untouched.
func (l *PendingClaimLedger) Claim(ctx context.Context, fid int64, address string) (ClaimReceipt, error) {
	if fid <= 0 {
		return ClaimReceipt{}, domain.Validation("missing user fid")
	}
	unlock, err := l.locker.Lock(ctx, claimLockKey(fid))
	if err != nil {
		return ClaimReceipt{}, fmt.Errorf("lock claim for %d: %w", fid, err)
	}
	defer unlock()

	claim, ok, err := l.store.Get(ctx, fid)
	if err != nil {
		return ClaimReceipt{}, fmt.Errorf("get pending for %d: %w", fid, err)
	}
	// sub-unit dust in a balance stays pending instead of blocking the claim
	amount := claim.Amount.Truncate(domain.TokenDecimals)
	if !ok || amount.Sign() <= 0 {
		return ClaimReceipt{}, domain.ErrNoPendingBalance
	}
	if !wallet.IsAddress(address) {
		return ClaimReceipt{}, domain.ErrInvalidAddress
	}

	hash, err := mintWithTimeout(ctx, l.minter, l.mintTimeout, address, amount)
	if err != nil {
		l.log.Error("claim mint failed", "fid", fid, "amount", amount.String(), "tx", hash, "error", err)
		return ClaimReceipt{}, err
	}

	// The tokens exist now; the debit must not be lost to a cancelled request.
	if _, err := l.store.Debit(context.WithoutCancel(ctx), fid, amount, l.now()); err != nil {
		l.log.Error("minted but pending balance not debited", "fid", fid, "amount", amount.String(), "tx", hash, "error", err)
		return ClaimReceipt{TransactionHash: hash, Amount: amount, Address: address},
			fmt.Errorf("debit after mint %s: %w", hash, err)
	}
	l.log.Info("claimed pending tokens", "fid", fid, "amount", amount.String(), "to", address, "tx", hash)
	return ClaimReceipt{TransactionHash: hash, Amount: amount, Address: address}, nil
}

func claimLockKey(fid int64) string {
	return "claim:" + strconv.FormatInt(fid, 10)
}
