package app

import (
	"context"
	"fmt"
	"strings"

	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/logger"
	"blitz-trivia-service/internal/wallet"
	"github.com/shopspring/decimal"
)

// RoundResult is one single-player trivia round reported by the client.
type RoundResult struct {
	Fid            int64           `json:"fid"`
	Username       string          `json:"username"`
	WalletAddress  string          `json:"walletAddress,omitempty"`
	Score          int             `json:"score"`
	Streak         int             `json:"streak"`
	RoundID        string          `json:"roundId,omitempty"`
	IsCorrect      bool            `json:"isCorrect"`
	Question       string          `json:"question,omitempty"`
	SelectedAnswer string          `json:"selectedAnswer,omitempty"`
	CorrectAnswer  string          `json:"correctAnswer,omitempty"`
	Context        *wallet.Context `json:"context,omitempty"`
}

// RoundReward is the reward granted for a round.
type RoundReward struct {
	TokenReward         bool   `json:"tokenReward"`
	TokenAmount         string `json:"tokenAmount"`
	ParticipationReward bool   `json:"participationReward"`
	ParticipationAmount string `json:"participationAmount"`
	Message             string `json:"message"`
	PendingAmount       string `json:"pendingAmount"`
	WalletAddress       string `json:"walletAddress,omitempty"`
}

// GameResults turns reported rounds into staged rewards and leaderboard updates.
type GameResults struct {
	calc        *RewardCalculator
	ledger      *PendingClaimLedger
	leaderboard *Leaderboard
	log         *logger.Logger
}

func NewGameResults(calc *RewardCalculator, ledger *PendingClaimLedger, leaderboard *Leaderboard, log *logger.Logger) *GameResults {
	return &GameResults{
		calc:        calc,
		ledger:      ledger,
		leaderboard: leaderboard,
		log:         log.With("component", "GameResults"),
	}
}

// Submit stages the round reward and refreshes the leaderboard. A failed
// leaderboard refresh is logged and does not fail the round.
func (g *GameResults) Submit(ctx context.Context, r RoundResult) (RoundReward, error) {
	if r.Fid <= 0 || strings.TrimSpace(r.Username) == "" {
		return RoundReward{}, domain.Validation("missing user information")
	}
	address, _ := wallet.Resolve(r.WalletAddress, r.Context)

	amount := g.calc.Reward(r.IsCorrect, r.Streak)
	out := RoundReward{TokenAmount: "0", ParticipationAmount: "0", WalletAddress: address}
	if r.IsCorrect {
		out.TokenReward = true
		out.TokenAmount = amount.String()
		out.Message = fmt.Sprintf("Correct! %s $BLITZ earned", out.TokenAmount)
		if g.calc.StreakBonusApplies(r.Streak) {
			out.Message += " (with streak bonus!)"
		}
	} else {
		out.ParticipationReward = true
		out.ParticipationAmount = amount.String()
		out.Message = fmt.Sprintf("Good try! %s $BLITZ for participation", out.ParticipationAmount)
	}

	pending := decimal.Zero
	if amount.Sign() > 0 {
		total, err := g.ledger.AddPending(ctx, r.Fid, amount)
		if err != nil {
			return RoundReward{}, err
		}
		pending = total
	} else {
		total, err := g.ledger.GetPending(ctx, r.Fid)
		if err != nil {
			return RoundReward{}, err
		}
		pending = total
	}
	out.PendingAmount = pending.String()

	g.log.Info("round recorded",
		"fid", r.Fid,
		"roundID", r.RoundID,
		"correct", r.IsCorrect,
		"score", r.Score,
		"streak", r.Streak,
		"reward", amount.String(),
		"wallet", address,
	)

	if _, err := g.leaderboard.Update(ctx, r.Fid, r.Username, r.Score, r.Streak, address); err != nil {
		g.log.Warn("leaderboard refresh failed", "fid", r.Fid, "error", err)
	}
	return out, nil
}
