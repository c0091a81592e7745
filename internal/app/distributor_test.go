package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"blitz-trivia-service/internal/app"
	"blitz-trivia-service/internal/chain"
	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/infra/memory"
	"github.com/shopspring/decimal"
)

// playQuiz creates a quiz with three questions and has each listed player
// answer `correct` questions right, then complete. The fourth player joins
// without completing.
func playQuiz(t *testing.T, f *fixture) domain.Quiz {
	t.Helper()
	ctx := context.Background()
	quiz, err := f.catalog.Create(ctx, quizInput("100", 10, 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	qs, _ := f.catalog.Questions(ctx, quiz.ID)
	players := []struct {
		fid     int64
		addr    string
		correct int
	}{{1, addrA, 3}, {2, addrB, 2}, {3, addrC, 1}}
	for _, p := range players {
		if _, err := f.catalog.Join(ctx, quiz.ID, p.fid, "player", p.addr); err != nil {
			t.Fatalf("join: %v", err)
		}
		for i, q := range qs {
			answer := "B"
			if i < p.correct {
				answer = "A"
			}
			if _, err := f.session.SubmitAnswer(ctx, quiz.ID, p.fid, q.ID, answer, 5); err != nil {
				t.Fatalf("answer: %v", err)
			}
		}
		if _, err := f.session.Complete(ctx, quiz.ID, p.fid); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
	if _, err := f.catalog.Join(ctx, quiz.ID, 4, "latecomer", addrA); err != nil {
		t.Fatalf("join 4: %v", err)
	}
	return quiz
}

func TestDistributeDirectEndToEnd(t *testing.T) {
	f := newFixture()
	quiz := playQuiz(t, f)
	d := f.distributor(app.PayoutDirect)
	ctx := context.Background()

	first, err := d.Distribute(ctx, quiz.ID, 1, addrA)
	if err != nil {
		t.Fatalf("distribute 1: %v", err)
	}
	if first.Rank != 1 || first.RewardAmount.String() != "50" || first.TransactionHash == "" {
		t.Fatalf("unexpected first place %+v", first)
	}
	third, err := d.Distribute(ctx, quiz.ID, 3, addrC)
	if err != nil {
		t.Fatalf("distribute 3: %v", err)
	}
	if third.Rank != 3 || third.RewardAmount.String() != "20" {
		t.Fatalf("unexpected third place %+v", third)
	}

	before := len(f.minter.Calls())
	fourth, err := d.Distribute(ctx, quiz.ID, 4, addrA)
	if err != nil {
		t.Fatalf("distribute 4: %v", err)
	}
	if fourth.Rank != 0 || !fourth.RewardAmount.IsZero() {
		t.Fatalf("non-completer must have no rank or reward, got %+v", fourth)
	}
	if len(f.minter.Calls()) != before {
		t.Fatalf("no mint expected for a non-completer")
	}

	calls := f.minter.Calls()
	if len(calls) != 2 || calls[0].Address != addrA || calls[1].Address != addrC {
		t.Fatalf("unexpected mint calls %+v", calls)
	}
}

func TestDistributePaysOnce(t *testing.T) {
	f := newFixture()
	quiz := playQuiz(t, f)
	d := f.distributor(app.PayoutDirect)
	ctx := context.Background()

	if _, err := d.Distribute(ctx, quiz.ID, 2, addrB); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if _, err := d.Distribute(ctx, quiz.ID, 2, addrB); !errors.Is(err, domain.ErrRewardAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}
	if len(f.minter.Calls()) != 1 {
		t.Fatalf("expected a single mint, got %d", len(f.minter.Calls()))
	}
}

func TestDistributeDirectMintFailure(t *testing.T) {
	f := newFixture()
	quiz := playQuiz(t, f)
	f.minter.err = errChainDown
	d := f.distributor(app.PayoutDirect)
	ctx := context.Background()

	_, err := d.Distribute(ctx, quiz.ID, 1, addrA)
	if !errors.Is(err, domain.ErrClaimFailed) || !errors.Is(err, domain.ErrMintRejected) {
		t.Fatalf("expected claim failed wrapping rejection, got %v", err)
	}
	p, _ := f.catalogStore.Participant(ctx, quiz.ID, 1)
	if p.RewardedAt != nil {
		t.Fatalf("failed payout must not mark the participant rewarded")
	}

	f.minter.err = nil
	if _, err := d.Distribute(ctx, quiz.ID, 1, addrA); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

// flakyMarkStore fails the first MarkRewarded call before touching the roster.
type flakyMarkStore struct {
	*memory.CatalogStore
	once sync.Once
}

func (s *flakyMarkStore) MarkRewarded(ctx context.Context, quizID string, fid int64, at time.Time) error {
	var fail bool
	s.once.Do(func() { fail = true })
	if fail {
		return errors.New("connection reset")
	}
	return s.CatalogStore.MarkRewarded(ctx, quizID, fid, at)
}

func TestDistributeMarkFailureDoesNotPay(t *testing.T) {
	f := newFixture()
	quiz := playQuiz(t, f)
	cfg := app.DefaultDistributorConfig()
	cfg.Mode = app.PayoutDirect
	cfg.MintTimeout = time.Second
	d := app.NewRewardDistributor(&flakyMarkStore{CatalogStore: f.catalogStore}, f.ledger, f.minter, f.locks, cfg, f.log)
	ctx := context.Background()

	if _, err := d.Distribute(ctx, quiz.ID, 1, addrA); err == nil {
		t.Fatalf("expected the failed reservation to surface")
	}
	if n := len(f.minter.Calls()); n != 0 {
		t.Fatalf("nothing may be minted without a reservation, got %d mints", n)
	}
	out, err := d.Distribute(ctx, quiz.ID, 1, addrA)
	if err != nil || out.RewardAmount.String() != "50" {
		t.Fatalf("retry: %+v %v", out, err)
	}
	if _, err := d.Distribute(ctx, quiz.ID, 1, addrA); !errors.Is(err, domain.ErrRewardAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}
	if n := len(f.minter.Calls()); n != 1 {
		t.Fatalf("expected exactly one mint, got %d", n)
	}
}

func TestDistributeSharesAreWholeBaseUnits(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz, err := f.catalog.Create(ctx, quizInput("0.000000000000000011", 10, 1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, p := range []struct {
		fid  int64
		addr string
	}{{1, addrA}, {2, addrB}, {3, addrC}} {
		_, _ = f.catalog.Join(ctx, quiz.ID, p.fid, "player", p.addr)
		_, _ = f.session.Complete(ctx, quiz.ID, p.fid)
	}

	d := f.distributor(app.PayoutStaged)
	want := map[int64]decimal.Decimal{1: decimal.New(5, -18), 2: decimal.New(3, -18), 3: decimal.New(2, -18)}
	for fid, amount := range want {
		out, err := d.Distribute(ctx, quiz.ID, fid, "")
		if err != nil {
			t.Fatalf("distribute %d: %v", fid, err)
		}
		if !out.RewardAmount.Equal(amount) {
			t.Fatalf("fid %d: expected %s, got %s", fid, amount, out.RewardAmount)
		}
	}

	// a later whole-token reward lands on the same balance and stays mintable
	if _, err := f.ledger.AddPending(ctx, 2, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("add: %v", err)
	}
	receipt, err := f.ledger.Claim(ctx, 2, addrB)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := chain.ToBaseUnits(receipt.Amount, domain.TokenDecimals); err != nil {
		t.Fatalf("claimed amount %s is not mintable: %v", receipt.Amount, err)
	}
}

func TestDistributeStagedCreditsLedger(t *testing.T) {
	f := newFixture()
	quiz := playQuiz(t, f)
	d := f.distributor(app.PayoutStaged)
	ctx := context.Background()

	out, err := d.Distribute(ctx, quiz.ID, 2, "")
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if out.Rank != 2 || out.RewardAmount.String() != "30" || out.PendingAmount != "30" {
		t.Fatalf("unexpected distribution %+v", out)
	}
	if len(f.minter.Calls()) != 0 {
		t.Fatalf("staged payout must not mint")
	}
	pending, _ := f.ledger.GetPending(ctx, 2)
	if !pending.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected 30 pending, got %s", pending)
	}
	receipt, err := f.ledger.Claim(ctx, 2, addrB)
	if err != nil || !receipt.Amount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("claim staged prize: %+v %v", receipt, err)
	}
}

func TestDistributeSecondPlaceNeedsTwoFinishers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz, _ := f.catalog.Create(ctx, quizInput("100", 10, 1))
	_, _ = f.catalog.Join(ctx, quiz.ID, 1, "solo", addrA)
	_, _ = f.catalog.Join(ctx, quiz.ID, 2, "quitter", addrB)
	_, _ = f.session.Complete(ctx, quiz.ID, 1)

	d := f.distributor(app.PayoutDirect)
	out, err := d.Distribute(ctx, quiz.ID, 1, addrA)
	if err != nil || out.Rank != 1 || out.RewardAmount.String() != "50" {
		t.Fatalf("solo finisher: %+v %v", out, err)
	}
	if _, err := d.Distribute(ctx, quiz.ID, 99, addrA); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("expected not participant, got %v", err)
	}
}

func TestParseDistributorConfig(t *testing.T) {
	cfg, err := app.ParseDistributorConfig("DIRECT", []string{"0.6", "0.4"}, 0)
	if err != nil || cfg.Mode != app.PayoutDirect || len(cfg.Fractions) != 2 {
		t.Fatalf("parse: %+v %v", cfg, err)
	}
	if _, err := app.ParseDistributorConfig("airdrop", nil, 0); err == nil {
		t.Fatalf("expected unknown mode to fail")
	}
	if _, err := app.ParseDistributorConfig("", []string{"0.7", "0.5"}, 0); err == nil {
		t.Fatalf("expected fractions over 1 to fail")
	}
}
