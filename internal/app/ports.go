package app

import (
	"context"
	"time"

	"blitz-trivia-service/internal/domain"
	"github.com/shopspring/decimal"
)

// CatalogStore persists quizzes, their questions and participant rosters.
// Implementations make every method atomic on its own and re-check the
// invariants they own (capacity, one participant per user, one answer per
// question) so concurrent writers across processes cannot break them.
type CatalogStore interface {
	// CreateQuiz stores the quiz, its questions and an empty roster as one unit.
	CreateQuiz(ctx context.Context, quiz domain.Quiz, questions []domain.Question) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error)
	// Questions returns the quiz questions ordered by Order.
	Questions(ctx context.Context, quizID string) ([]domain.Question, error)
	SetStatus(ctx context.Context, quizID string, status domain.QuizStatus, at time.Time) error

	// AddParticipant appends p to the roster and increments the participant
	// count together, returning the updated quiz.
	AddParticipant(ctx context.Context, p domain.Participant) (domain.Quiz, error)
	Participant(ctx context.Context, quizID string, fid int64) (domain.Participant, error)
	// Participants returns the roster in join order.
	Participants(ctx context.Context, quizID string) ([]domain.Participant, error)
	// RecordAnswer stores the answer and applies it to score and streak as one unit.
	RecordAnswer(ctx context.Context, quizID string, fid int64, answer domain.Answer) (domain.Participant, error)
	MarkCompleted(ctx context.Context, quizID string, fid int64, at time.Time) (domain.Participant, error)
	// MarkRewarded sets the reward time once; a second call fails with
	// ErrRewardAlreadyClaimed.
	MarkRewarded(ctx context.Context, quizID string, fid int64, at time.Time) error
	// ClearRewarded releases a reward mark whose payout failed.
	ClearRewarded(ctx context.Context, quizID string, fid int64) error
}

// QuestionSource loads the ordered question list of a quiz; caches sit behind it.
type QuestionSource interface {
	Questions(ctx context.Context, quizID string) ([]domain.Question, error)
}

// LedgerStore holds pending token balances keyed by fid.
type LedgerStore interface {
	// Add accumulates amount into the balance and returns the new total.
	Add(ctx context.Context, fid int64, amount decimal.Decimal, at time.Time) (decimal.Decimal, error)
	Get(ctx context.Context, fid int64) (domain.PendingClaim, bool, error)
	// Debit subtracts amount, removing the entry once it reaches zero. It fails
	// with ErrNoPendingBalance when the balance is smaller than amount.
	Debit(ctx context.Context, fid int64, amount decimal.Decimal, at time.Time) (decimal.Decimal, error)
}

// LeaderboardRepository stores one entry per player.
type LeaderboardRepository interface {
	Upsert(ctx context.Context, entry domain.LeaderboardEntry) error
	// Top returns up to n entries by score desc, then streak desc.
	Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
}

// Minter issues tokens on chain and returns the transaction hash once confirmed.
type Minter interface {
	Mint(ctx context.Context, address string, amount decimal.Decimal) (string, error)
}

// Locker serializes work on a key, possibly across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
