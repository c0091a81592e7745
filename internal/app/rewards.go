package app

import (
	"fmt"

	"blitz-trivia-service/internal/domain"
	"github.com/shopspring/decimal"
)

// RewardConfig holds the per-round token amounts.
type RewardConfig struct {
	CorrectAnswer  decimal.Decimal
	StreakBonus    decimal.Decimal
	Participation  decimal.Decimal
	StreakInterval int
}

// DefaultRewardConfig pays 10 per correct answer, 5 extra every fifth streak
// and 1 for a wrong answer.
func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		CorrectAnswer:  decimal.NewFromInt(10),
		StreakBonus:    decimal.NewFromInt(5),
		Participation:  decimal.NewFromInt(1),
		StreakInterval: 5,
	}
}

// ParseRewardConfig builds a RewardConfig from decimal strings.
func ParseRewardConfig(correct, bonus, participation string, interval int) (RewardConfig, error) {
	cfg := RewardConfig{StreakInterval: interval}
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"correct_answer", correct, &cfg.CorrectAnswer},
		{"streak_bonus", bonus, &cfg.StreakBonus},
		{"participation", participation, &cfg.Participation},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return RewardConfig{}, fmt.Errorf("rewards.%s: %w", f.name, err)
		}
		if d.IsNegative() {
			return RewardConfig{}, fmt.Errorf("rewards.%s must not be negative", f.name)
		}
		if !domain.ValidTokenAmount(d) {
			return RewardConfig{}, fmt.Errorf("rewards.%s has more than %d decimal places", f.name, domain.TokenDecimals)
		}
		*f.dst = d
	}
	if cfg.StreakInterval <= 0 {
		return RewardConfig{}, fmt.Errorf("rewards.streak_interval must be positive")
	}
	return cfg, nil
}

// RewardCalculator maps a round outcome to a token amount.
type RewardCalculator struct {
	cfg RewardConfig
}

func NewRewardCalculator(cfg RewardConfig) *RewardCalculator {
	return &RewardCalculator{cfg: cfg}
}

// Reward returns the tokens earned for one round. streak is the count of
// consecutive correct answers including this one.
func (c *RewardCalculator) Reward(isCorrect bool, streak int) decimal.Decimal {
	if !isCorrect {
		return c.cfg.Participation
	}
	if c.StreakBonusApplies(streak) {
		return c.cfg.CorrectAnswer.Add(c.cfg.StreakBonus)
	}
	return c.cfg.CorrectAnswer
}

// StreakBonusApplies reports whether streak lands on a bonus boundary.
func (c *RewardCalculator) StreakBonusApplies(streak int) bool {
	return streak > 0 && streak%c.cfg.StreakInterval == 0
}
