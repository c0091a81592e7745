package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/logger"
	"blitz-trivia-service/internal/wallet"
	"github.com/shopspring/decimal"
)

// PayoutMode selects how prize money reaches a winner.
type PayoutMode string

const (
	// PayoutStaged credits the pending-claim ledger; the winner claims later.
	PayoutStaged PayoutMode = "staged"
	// PayoutDirect mints to the winner's address immediately.
	PayoutDirect PayoutMode = "direct"
)

type DistributorConfig struct {
	Fractions   []decimal.Decimal
	Mode        PayoutMode
	MintTimeout time.Duration
}

// DefaultDistributorConfig splits the pool 50/30/20 and stages payouts.
func DefaultDistributorConfig() DistributorConfig {
	return DistributorConfig{
		Fractions: []decimal.Decimal{
			decimal.RequireFromString("0.5"),
			decimal.RequireFromString("0.3"),
			decimal.RequireFromString("0.2"),
		},
		Mode:        PayoutStaged,
		MintTimeout: 2 * time.Minute,
	}
}

// ParseDistributorConfig builds a DistributorConfig from configuration strings.
func ParseDistributorConfig(mode string, fractions []string, mintTimeout time.Duration) (DistributorConfig, error) {
	cfg := DistributorConfig{Mode: PayoutMode(strings.ToLower(strings.TrimSpace(mode))), MintTimeout: mintTimeout}
	if cfg.Mode == "" {
		cfg.Mode = PayoutStaged
	}
	if cfg.Mode != PayoutStaged && cfg.Mode != PayoutDirect {
		return DistributorConfig{}, fmt.Errorf("distribution.mode %q: want staged or direct", mode)
	}
	total := decimal.Zero
	for i, raw := range fractions {
		f, err := decimal.NewFromString(raw)
		if err != nil {
			return DistributorConfig{}, fmt.Errorf("distribution.fractions[%d]: %w", i, err)
		}
		if f.IsNegative() {
			return DistributorConfig{}, fmt.Errorf("distribution.fractions[%d] must not be negative", i)
		}
		total = total.Add(f)
		cfg.Fractions = append(cfg.Fractions, f)
	}
	if total.GreaterThan(decimal.NewFromInt(1)) {
		return DistributorConfig{}, fmt.Errorf("distribution.fractions sum to %s, more than the pool", total)
	}
	return cfg, nil
}

// Distribution is the prize outcome for one participant. Rank is 0 when the
// participant has not completed the quiz.
type Distribution struct {
	RewardAmount    decimal.Decimal `json:"rewardAmount"`
	Rank            int             `json:"rank,omitempty"`
	TransactionHash string          `json:"transactionHash,omitempty"`
	PendingAmount   string          `json:"pendingAmount,omitempty"`
	Mode            PayoutMode      `json:"mode"`
}

// RewardDistributor ranks completed participants and pays the prize split.
type RewardDistributor struct {
	store  CatalogStore
	ledger *PendingClaimLedger
	minter Minter
	locks  Locker
	cfg    DistributorConfig
	log    *logger.Logger
	now    func() time.Time
}

func NewRewardDistributor(store CatalogStore, ledger *PendingClaimLedger, minter Minter, locks Locker, cfg DistributorConfig, log *logger.Logger) *RewardDistributor {
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if cfg.Mode == "" {
		cfg.Mode = PayoutStaged
	}
	return &RewardDistributor{
		store:  store,
		ledger: ledger,
		minter: minter,
		locks:  locks,
		cfg:    cfg,
		log:    log.With("component", "RewardDistributor"),
		now:    time.Now,
	}
}

// Rank returns the 1-based rank of fid among completed participants ordered by
// score, or 0 if fid has not completed. Ties keep roster order.
func Rank(participants []domain.Participant, fid int64) (rank, completed int) {
	done := make([]domain.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Completed() {
			done = append(done, p)
		}
	}
	sort.SliceStable(done, func(i, j int) bool { return done[i].Score > done[j].Score })
	for i, p := range done {
		if p.Fid == fid {
			return i + 1, len(done)
		}
	}
	return 0, len(done)
}

// Share returns the prize for rank out of completed finishers.
func (d *RewardDistributor) Share(prizePool decimal.Decimal, rank, completed int) decimal.Decimal {
	if rank < 1 || rank > completed || rank > len(d.cfg.Fractions) {
		return decimal.Zero
	}
	// whole base units only; the remainder stays with the pool
	return prizePool.Mul(d.cfg.Fractions[rank-1]).Truncate(domain.TokenDecimals)
}

// Distribute computes fid's prize and pays it once.
func (d *RewardDistributor) Distribute(ctx context.Context, quizID string, fid int64, address string) (Distribution, error) {
	if quizID == "" || fid <= 0 {
		return Distribution{}, domain.Validation("missing required fields")
	}
	unlock, err := d.locks.Lock(ctx, playKey(quizID, fid))
	if err != nil {
		return Distribution{}, err
	}
	defer unlock()

	quiz, err := d.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Distribution{}, err
	}
	p, err := d.store.Participant(ctx, quizID, fid)
	if err != nil {
		return Distribution{}, err
	}
	roster, err := d.store.Participants(ctx, quizID)
	if err != nil {
		return Distribution{}, err
	}
	rank, completed := Rank(roster, fid)
	out := Distribution{RewardAmount: d.Share(quiz.PrizePool, rank, completed), Rank: rank, Mode: d.cfg.Mode}
	if out.RewardAmount.Sign() <= 0 {
		return out, nil
	}
	if p.RewardedAt != nil {
		return Distribution{}, domain.ErrRewardAlreadyClaimed
	}
	if address == "" {
		address = p.WalletAddress
	}
	if d.cfg.Mode == PayoutDirect && !wallet.IsAddress(address) {
		return Distribution{}, domain.ErrInvalidAddress
	}

	// reserved before paying, released only when the payout fails
	if err := d.store.MarkRewarded(ctx, quizID, fid, d.now().UTC()); err != nil {
		return Distribution{}, fmt.Errorf("reserve prize for %d: %w", fid, err)
	}
	if err := d.pay(ctx, quizID, fid, address, &out); err != nil {
		if cerr := d.store.ClearRewarded(context.WithoutCancel(ctx), quizID, fid); cerr != nil {
			d.log.Error("prize not paid and reservation not released", "quizID", quizID, "fid", fid, "error", cerr)
		}
		return Distribution{}, err
	}
	d.log.Info("prize distributed", "quizID", quizID, "fid", fid, "rank", rank, "amount", out.RewardAmount.String(), "mode", d.cfg.Mode)
	return out, nil
}

func (d *RewardDistributor) pay(ctx context.Context, quizID string, fid int64, address string, out *Distribution) error {
	if d.cfg.Mode == PayoutDirect {
		hash, err := mintWithTimeout(ctx, d.minter, d.cfg.MintTimeout, address, out.RewardAmount)
		if err != nil {
			d.log.Error("prize mint failed", "quizID", quizID, "fid", fid, "amount", out.RewardAmount.String(), "error", err)
			return fmt.Errorf("%w: %w", domain.ErrClaimFailed, err)
		}
		out.TransactionHash = hash
		return nil
	}
	total, err := d.ledger.AddPending(ctx, fid, out.RewardAmount)
	if err != nil {
		return err
	}
	out.PendingAmount = total.String()
	return nil
}
