package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"blitz-trivia-service/internal/app"
	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/infra/memory"
	"blitz-trivia-service/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	addrA = "0x00000000000000000000000000000000000000a1"
	addrB = "0x00000000000000000000000000000000000000b2"
	addrC = "0x00000000000000000000000000000000000000c3"
)

type mintCall struct {
	Address string
	Amount  decimal.Decimal
}

// recordingMinter succeeds unless err is set, and remembers every call.
type recordingMinter struct {
	mu    sync.Mutex
	calls []mintCall
	err   error
	delay time.Duration
	seq   atomic.Int64
}

func (m *recordingMinter) Mint(ctx context.Context, address string, amount decimal.Decimal) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, mintCall{Address: address, Amount: amount})
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return fmt.Sprintf("0xtx%d", m.seq.Add(1)), nil
}

func (m *recordingMinter) Calls() []mintCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mintCall(nil), m.calls...)
}

var errChainDown = errors.New("execution reverted")

type fixture struct {
	catalogStore *memory.CatalogStore
	ledgerStore  *memory.LedgerStore
	minter       *recordingMinter
	locks        *app.KeyedMutex
	log          *logger.Logger

	catalog     *app.QuizCatalog
	session     *app.QuizSession
	ledger      *app.PendingClaimLedger
	leaderboard *app.Leaderboard
}

func newFixture() *fixture {
	f := &fixture{
		catalogStore: memory.NewCatalogStore(),
		ledgerStore:  memory.NewLedgerStore(),
		minter:       &recordingMinter{},
		locks:        app.NewKeyedMutex(),
		log:          logger.NewNop(),
	}
	f.catalog = app.NewQuizCatalog(f.catalogStore, nil, f.locks, domain.StatusActive, f.log)
	f.session = app.NewQuizSession(f.catalogStore, nil, f.locks, f.log)
	f.ledger = app.NewPendingClaimLedger(f.ledgerStore, f.minter, f.locks, time.Second, f.log)
	f.leaderboard = app.NewLeaderboard(memory.NewLeaderboardStore())
	return f
}

func (f *fixture) distributor(mode app.PayoutMode) *app.RewardDistributor {
	cfg := app.DefaultDistributorConfig()
	cfg.Mode = mode
	cfg.MintTimeout = time.Second
	return app.NewRewardDistributor(f.catalogStore, f.ledger, f.minter, f.locks, cfg, f.log)
}

func quizInput(prizePool string, max int, questions int) app.CreateQuizInput {
	in := app.CreateQuizInput{
		Title:           "Crypto Basics",
		Description:     "Test your knowledge",
		HostFid:         100,
		HostUsername:    "host",
		Category:        "crypto",
		Difficulty:      "easy",
		EntryFee:        "0",
		PrizePool:       prizePool,
		MaxParticipants: max,
	}
	for i := 0; i < questions; i++ {
		in.Questions = append(in.Questions, app.QuestionInput{
			Question:      fmt.Sprintf("Question %d?", i+1),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: "A",
			Points:        10,
		})
	}
	return in
}
